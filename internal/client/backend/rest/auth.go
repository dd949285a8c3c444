package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
)

// OnAuthStateChange registers h. Handlers run synchronously, in
// registration order, on the goroutine that caused the change.
func (c *Client) OnAuthStateChange(h backend.AuthHandler) func() {
	c.mu.Lock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = h
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify(event models.AuthEvent, s *models.Session) {
	c.mu.Lock()
	handlers := make([]backend.AuthHandler, 0, len(c.handlers))
	for i := 0; i < c.nextHandler; i++ {
		if h, ok := c.handlers[i]; ok {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(event, s)
	}
}

// GetSession returns the persisted session, refreshing it first when the
// access token has expired. A refresh token the backend rejects drops the
// session and yields (nil, nil).
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	s, err := c.current(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if !s.Expired(c.now()) {
		return s, nil
	}

	refreshed, err := c.refresh(ctx, s.RefreshToken)
	if errors.Is(err, backend.ErrUnauthorized) {
		c.logger.Warn(ctx, "stored session rejected on refresh", "err", err)
		if err := c.forget(ctx); err != nil {
			return nil, err
		}
		c.notify(models.EventSignedOut, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.notify(models.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

// current loads the session from storage on first use.
func (c *Client) current(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	if c.loaded {
		s := c.session
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	raw, err := c.storage.Get(ctx, c.storageKey)
	if err != nil {
		return nil, fmt.Errorf("read persisted session: %w", err)
	}

	var s *models.Session
	if raw != nil {
		s = &models.Session{}
		if err := json.Unmarshal(raw, s); err != nil {
			c.logger.Warn(ctx, "discarding unreadable persisted session", "err", err)
			s = nil
		}
	}

	c.mu.Lock()
	if !c.loaded {
		c.session, c.loaded = s, true
	}
	s = c.session
	c.mu.Unlock()
	return s, nil
}

func (c *Client) remember(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.storage.Set(ctx, c.storageKey, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	c.mu.Lock()
	c.session, c.loaded = s, true
	c.mu.Unlock()
	return nil
}

func (c *Client) forget(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.revokeToken = c.session.AccessToken
	}
	c.session, c.loaded = nil, true
	c.mu.Unlock()

	if err := c.storage.Delete(ctx, c.storageKey); err != nil {
		return fmt.Errorf("remove persisted session: %w", err)
	}
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", backend.ErrUnauthorized)
	}
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.acceptTokens(ctx, &tr)
}

func (c *Client) acceptTokens(ctx context.Context, tr *tokenResponse) (*models.Session, error) {
	s, err := tr.session(c.now())
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if err := c.remember(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// accessToken returns a non-expired access token for authorised calls.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("%w: no session", backend.ErrUnauthorized)
	}
	return s.AccessToken, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": email, "password": password},
	}, &tr)
	if err != nil {
		return nil, err
	}

	// With email confirmation enabled GoTrue answers with a bare user and no
	// tokens; the session arrives later through the confirmation link.
	s, err := c.acceptTokens(ctx, &tr)
	if err != nil || s == nil {
		return nil, err
	}
	c.notify(models.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &tr)
	if err != nil {
		return nil, err
	}
	s, err := c.acceptTokens(ctx, &tr)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: sign-in returned no session", backend.ErrUnauthorized)
	}
	c.notify(models.EventSignedIn, s)
	return s, nil
}

// SignOut with ScopeLocal drops the local session and revokes its refresh
// token. ScopeGlobal revokes every session of the user; it can run after a
// local sign-out because the last access token is kept for that purpose.
func (c *Client) SignOut(ctx context.Context, scope models.SignOutScope) error {
	c.mu.Lock()
	token := c.revokeToken
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.Unlock()

	if scope == models.ScopeGlobal {
		if token == "" {
			return nil
		}
		return c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			query:  url.Values{"scope": {string(scope)}},
			bearer: token,
		}, nil)
	}

	var revokeErr error
	if token != "" {
		revokeErr = c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			query:  url.Values{"scope": {string(scope)}},
			bearer: token,
		}, nil)
		// An already invalid token still means we are signed out.
		if errors.Is(revokeErr, backend.ErrUnauthorized) || errors.Is(revokeErr, backend.ErrNotFound) {
			revokeErr = nil
		}
	}

	if err := c.forget(ctx); err != nil {
		return err
	}
	c.notify(models.EventSignedOut, nil)
	return revokeErr
}

// SetSession adopts a token pair handed over out of band, e.g. in a
// password recovery link. An expired access token is refreshed first.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	s, refreshed, err := c.adopt(ctx, accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	if refreshed {
		c.notify(models.EventTokenRefreshed, s)
	} else {
		c.notify(models.EventSignedIn, s)
	}
	return s, nil
}

// DetectSessionInURL adopts the token pair of a recovery link fragment,
// with or without the leading '#', and emits EventPasswordRecovery. A
// fragment that is not a recovery hand-off is ignored and yields nil.
func (c *Client) DetectSessionInURL(ctx context.Context, fragment string) (*models.Session, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil || values.Get("type") != "recovery" {
		return nil, nil
	}
	access, refresh := values.Get("access_token"), values.Get("refresh_token")
	if access == "" || refresh == "" {
		return nil, nil
	}

	s, _, err := c.adopt(ctx, access, refresh)
	if err != nil {
		return nil, fmt.Errorf("recovery link: %w", err)
	}
	c.notify(models.EventPasswordRecovery, s)
	return s, nil
}

// adopt validates and persists a token pair. It reports whether the access
// token had to be refreshed.
func (c *Client) adopt(ctx context.Context, accessToken, refreshToken string) (*models.Session, bool, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, false, backend.ErrInvalidTokens
	}
	claims, err := parseAccessToken(accessToken)
	if err != nil {
		return nil, false, err
	}

	exp := claims.expiresAt()
	if !exp.IsZero() && !c.now().Before(exp) {
		s, err := c.refresh(ctx, refreshToken)
		if err != nil {
			return nil, false, err
		}
		return s, true, nil
	}

	var u userDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", bearer: accessToken}, &u); err != nil {
		return nil, false, err
	}
	user, err := u.identity()
	if err != nil {
		return nil, false, err
	}

	s := &models.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         user,
	}
	if err := c.remember(ctx, s); err != nil {
		return nil, false, err
	}
	return s, false, nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		query:  q,
		body:   map[string]string{"email": email},
	}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var u userDTO
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		body:   map[string]string{"password": password},
		bearer: token,
	}, &u); err != nil {
		return err
	}

	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	c.notify(models.EventUserUpdated, s)
	return nil
}

type profileRow struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r profileRow) profile(userID string) (*models.Profile, error) {
	if r.ID != userID {
		return nil, fmt.Errorf("profile row id %q does not match user %q", r.ID, userID)
	}
	p := &models.Profile{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if r.DisplayName != nil {
		p.DisplayName = *r.DisplayName
	}
	if r.AvatarURL != nil {
		p.AvatarURL = *r.AvatarURL
	}
	return p, nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID string) (*models.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var rows []profileRow
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query:  url.Values{"select": {"*"}, "id": {"eq." + userID}},
		bearer: token,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].profile(userID)
}
