// Package models defines the client-side data types shared by the session,
// progress and backend packages.
package models

import "time"

// Identity is the authenticated user's stable identifier and basic account
// fields, mirrored read-only from the backend.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs an Identity with backend-issued credentials. The tokens are
// opaque to everything except the backend client.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *Identity `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt is treated as never expiring.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Profile is supplementary per-user display data.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
