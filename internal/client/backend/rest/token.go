package rest

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims is the subset of GoTrue access token claims the client reads.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// parseAccessToken decodes the claims without verifying the signature: the
// client has no signing key, and the backend verifies every request anyway.
func parseAccessToken(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrInvalidTokens, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", backend.ErrInvalidTokens)
	}
	return claims, nil
}

func (c *accessClaims) expiresAt() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// tokenResponse is the GoTrue /token and /signup payload.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         *userDTO `json:"user"`
}

type userDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *userDTO) identity() (*models.Identity, error) {
	if u == nil {
		return nil, nil
	}
	if _, err := uuid.Parse(u.ID); err != nil {
		return nil, fmt.Errorf("backend returned malformed user id %q: %w", u.ID, err)
	}
	return &models.Identity{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}, nil
}

func (t *tokenResponse) session(now time.Time) (*models.Session, error) {
	if t.AccessToken == "" {
		return nil, nil
	}
	user, err := t.User.identity()
	if err != nil {
		return nil, err
	}

	var exp time.Time
	switch {
	case t.ExpiresAt > 0:
		exp = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		exp = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		if claims, err := parseAccessToken(t.AccessToken); err == nil {
			exp = claims.expiresAt()
		}
	}

	return &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresAt:    exp,
		User:         user,
	}, nil
}
