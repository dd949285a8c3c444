// Package backend describes the managed auth/database service the client
// talks to. Implementations live in the rest and postgres subpackages.
//
// Common failure conditions are exposed as sentinel errors that callers
// match with errors.Is: ErrUnauthorized, ErrUnavailable, ErrNotFound,
// ErrInvalidTokens.
package backend

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/tutorly/internal/client/models"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnavailable   = errors.New("backend unavailable")
	ErrNotFound      = errors.New("not found")
	ErrInvalidTokens = errors.New("invalid token pair")
)

// AuthHandler receives every auth state change. session is nil after a
// sign-out or expiry.
type AuthHandler func(event models.AuthEvent, session *models.Session)

// Auth is the session side of the backend.
type Auth interface {
	// GetSession returns the persisted session, or nil when there is none.
	GetSession(ctx context.Context) (*models.Session, error)
	// OnAuthStateChange registers h and returns a function that removes it.
	OnAuthStateChange(h AuthHandler) (unsubscribe func())
	SignOut(ctx context.Context, scope models.SignOutScope) error
	// SetSession establishes a session directly from a token pair.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
	// GetUserProfile returns the profile row, or nil when none exists.
	GetUserProfile(ctx context.Context, userID string) (*models.Profile, error)

	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, password string) error
}

// ProgressStore is the durable store of progress records.
type ProgressStore interface {
	// ListProgress returns all records of userID, restricted to courseSlug
	// when it is not empty.
	ListProgress(ctx context.Context, userID, courseSlug string) ([]models.ProgressRecord, error)
	// UpsertProgress inserts the record or updates the existing one with the
	// same (user, course, lesson) key.
	UpsertProgress(ctx context.Context, rec models.ProgressRecord) error
	// GetCourseProgress runs the server-side aggregate for one course.
	GetCourseProgress(ctx context.Context, userID, courseSlug string) (models.CourseProgress, error)
}

// Backend is everything the client consumes.
type Backend interface {
	Auth
	ProgressStore
}
