// Package services contains the application services behind the CLI.
// This file defines the account service: sign-up, sign-in, password reset
// request and password update, each validating its form locally before
// calling the backend.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
)

// DefaultUpdateTimeout bounds the password update call.
const DefaultUpdateTimeout = 5 * time.Second

var (
	ErrNoRecoverySession = errors.New("no valid recovery session, use the reset link from your email")
	ErrUpdateTimeout     = errors.New("password update timed out")
)

// ValidationError is a form input the backend was never asked about.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthService defines account operations for the CLI.
//
// Contract:
//   - SignUp: create an account; the session is nil when the backend
//     requires email confirmation first.
//   - SignIn: password sign-in.
//   - RequestPasswordReset: mail a recovery link that lands on the
//     update-password screen.
//   - UpdatePassword: set a new password for the current (recovery) session.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password, confirm string) error
}

type authService struct {
	auth          backend.Auth
	redirectTo    string
	updateTimeout time.Duration
}

// NewAuthService binds the service to the backend. redirectTo is the URL
// put into password reset mails.
func NewAuthService(auth backend.Auth, redirectTo string, updateTimeout time.Duration) AuthService {
	if updateTimeout <= 0 {
		updateTimeout = DefaultUpdateTimeout
	}
	return &authService{auth: auth, redirectTo: redirectTo, updateTimeout: updateTimeout}
}

func (a *authService) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if err := check(signUpForm{Email: email, Password: password}); err != nil {
		return nil, err
	}
	s, err := a.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return s, nil
}

func (a *authService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := check(signInForm{Email: email, Password: password}); err != nil {
		return nil, err
	}
	s, err := a.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s, nil
}

func (a *authService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := check(resetForm{Email: email}); err != nil {
		return err
	}
	if err := a.auth.ResetPasswordForEmail(ctx, email, a.redirectTo); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// UpdatePassword requires a live session, normally the one adopted from a
// recovery link.
func (a *authService) UpdatePassword(ctx context.Context, password, confirm string) error {
	if err := check(passwordForm{Password: password, Confirm: confirm}); err != nil {
		return err
	}

	s, err := a.auth.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("check recovery session: %w", err)
	}
	if s == nil {
		return ErrNoRecoverySession
	}

	ctx, cancel := context.WithTimeout(ctx, a.updateTimeout)
	defer cancel()
	if err := a.auth.UpdatePassword(ctx, password); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrUpdateTimeout
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
