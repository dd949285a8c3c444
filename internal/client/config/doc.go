// Package config loads runtime configuration for the Tutorly client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Only keys present in the file override defaults. Durations may be strings
// like "6s" or integer nanoseconds:
//
//	{
//	  "backend_url": "https://abcd.supabase.co",
//	  "anon_key": "eyJ...",
//	  "content_source": "s3://tutorly-content/courses",
//	  "s3_region": "eu-central-1",
//	  "database_dsn": "tutorly.db",
//	  "sign_out_timeout": "6s",
//	  "hard_navigate": false
//	}
//
// This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
