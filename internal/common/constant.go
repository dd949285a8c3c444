// Package common contains wire-level names shared by the backend client and
// the session store.
package common

// APIKeyHeaderName is the header that carries the project's anon key on
// every backend request.
const APIKeyHeaderName = "apikey"

// PreferHeaderName carries PostgREST request preferences.
const PreferHeaderName = "Prefer"

// A persisted session lives under AuthTokenKeyPrefix + ref + AuthTokenKeySuffix.
const (
	AuthTokenKeyPrefix = "sb-"
	AuthTokenKeySuffix = "-auth-token"

	// VendorMarker marks any other key the auth library may have written.
	VendorMarker = "supabase"
)
