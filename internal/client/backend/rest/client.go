// Package rest implements backend.Backend against a Supabase-compatible
// HTTP API: GoTrue under /auth/v1 and PostgREST under /rest/v1.
//
// The current session is persisted as JSON in client-side storage under
// StorageKey(baseURL), the same "sb-<project>-auth-token" convention the
// forced sign-out cleanup scans for.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tutorly/internal/common"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	storageKey string
	httpClient *http.Client
	storage    metadata.Repository
	logger     logging.Logger
	now        func() time.Time

	mu          sync.Mutex
	session     *models.Session
	loaded      bool
	revokeToken string
	handlers    map[int]backend.AuthHandler
	nextHandler int
}

var _ backend.Backend = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// New returns a Client for the project at baseURL.
func New(baseURL, anonKey string, storage metadata.Repository, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		storageKey: StorageKey(baseURL),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		storage:    storage,
		logger:     logging.Discard(),
		now:        time.Now,
		handlers:   make(map[int]backend.AuthHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StorageKey derives the persisted-session key from the project URL: the
// first host label becomes the project ref, e.g.
// https://abcd.supabase.co -> sb-abcd-auth-token.
func StorageKey(baseURL string) string {
	ref := "local"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		ref, _, _ = strings.Cut(u.Hostname(), ".")
	}
	return common.AuthTokenKeyPrefix + ref + common.AuthTokenKeySuffix
}

func (c *Client) StorageKey() string {
	return c.storageKey
}

// request describes one HTTP call. bearer falls back to the anon key.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
	header http.Header
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set(common.APIKeyHeaderName, c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", backend.ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return mapStatus(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}
