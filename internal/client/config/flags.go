package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tutorly/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string     backend project URL
//	-k string     backend anon key
//	-s string     content source (URL, s3://bucket/prefix or directory)
//	-d string     SQLite DSN for client-side storage
//	-p string     Postgres DSN for progress
//	-t duration   sign-out timeout, e.g. 6s
//	-nav string   "hard" or "soft" navigation after sign-out
//	-l string     log level
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-k", "-s", "-d", "-p", "-t", "-nav", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "u", cfg.BackendURL, "backend project URL")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "backend anon key")
	fs.StringVar(&cfg.ContentSource, "s", cfg.ContentSource, "content source")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "sqlite dsn for client-side storage")
	fs.StringVar(&cfg.ProgressDSN, "p", cfg.ProgressDSN, "postgres dsn for progress")
	fs.DurationVar(&cfg.SignOutTimeout, "t", cfg.SignOutTimeout, "sign-out timeout")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	navMode := "soft"
	if cfg.HardNavigate {
		navMode = "hard"
	}
	fs.StringVar(&navMode, "nav", navMode, "navigation after sign-out: hard or soft")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	switch navMode {
	case "hard":
		cfg.HardNavigate = true
	case "soft":
		cfg.HardNavigate = false
	default:
		panic(fmt.Sprintf("invalid -nav value %q", navMode))
	}
}
