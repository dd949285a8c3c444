// Package session holds the client's view of who is signed in.
//
// A Store mirrors the backend's auth events into a State snapshot: the
// current Session and Identity, the Identity's Profile, a Loading indicator
// for the initial bootstrap, and the Recovery flag that is raised by a
// password-recovery event and cleared by the recovery redirector.
// Observers registered with Subscribe are told about every change.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tutorly/internal/common"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

const (
	// DefaultSignOutTimeout bounds the wait for the local sign-out call.
	DefaultSignOutTimeout = 6 * time.Second

	// DefaultRevokeTimeout bounds the background global revoke.
	DefaultRevokeTimeout = 10 * time.Second

	// DefaultEntryPoint is where SignOut lands.
	DefaultEntryPoint = "/login"
)

// State is an immutable snapshot of the store.
type State struct {
	Session  *models.Session
	Identity *models.Identity
	Profile  *models.Profile
	Loading  bool
	Recovery bool

	version uint64
}

// Anonymous reports whether no identity is signed in.
func (s State) Anonymous() bool {
	return s.Identity == nil
}

// Navigator performs the post sign-out navigation.
type Navigator interface {
	// Assign is a full navigation that discards in-memory state.
	Assign(path string)
	// Navigate is an in-app route change.
	Navigate(path string, replace bool)
}

type observer struct {
	fn   func(State)
	seen atomic.Uint64
}

// Store holds the session, identity and profile of the signed-in user and
// publishes every change to its subscribers. It is safe for concurrent use.
type Store struct {
	auth    backend.Auth
	local   metadata.Repository
	session metadata.Repository
	nav     Navigator
	logger  logging.Logger

	signOutTimeout time.Duration
	revokeTimeout  time.Duration
	entryPoint     string
	hardNavigate   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	state        State
	gen          uint64
	observers    map[int]*observer
	nextObserver int
	unsubscribe  func()
}

// Option configures a Store in New.
type Option func(*Store)

// WithSignOutTimeout bounds the wait for the local sign-out call.
func WithSignOutTimeout(d time.Duration) Option {
	return func(s *Store) { s.signOutTimeout = d }
}

// WithRevokeTimeout bounds the background global revoke.
func WithRevokeTimeout(d time.Duration) Option {
	return func(s *Store) { s.revokeTimeout = d }
}

// WithEntryPoint sets where SignOut navigates to.
func WithEntryPoint(path string) Option {
	return func(s *Store) { s.entryPoint = path }
}

// WithHardNavigation picks Assign (true, the default) or an in-app
// replace-navigation (false) after sign-out.
func WithHardNavigation(hard bool) Option {
	return func(s *Store) { s.hardNavigate = hard }
}

// WithSessionStorage adds a per-process storage area to the forced cleanup.
func WithSessionStorage(r metadata.Repository) Option {
	return func(s *Store) { s.session = r }
}

// New builds a Store over the auth backend and the persistent client-side
// storage the backend keeps its tokens in. Call Initialize before use.
func New(auth backend.Auth, storage metadata.Repository, nav Navigator, logger logging.Logger, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		auth:           auth,
		local:          storage,
		nav:            nav,
		logger:         logger.With("component", "session"),
		signOutTimeout: DefaultSignOutTimeout,
		revokeTimeout:  DefaultRevokeTimeout,
		entryPoint:     DefaultEntryPoint,
		hardNavigate:   true,
		ctx:            ctx,
		cancel:         cancel,
		state:          State{Loading: true},
		observers:      make(map[int]*observer),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize subscribes to auth events and resolves the persisted session.
// A backend failure leaves the store anonymous. Loading is false afterwards
// either way.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.auth.OnAuthStateChange(s.handleAuthEvent)
	}
	s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.logger.Warn(ctx, "session bootstrap failed, continuing signed out", "err", err)
		sess = nil
	}
	s.apply(models.EventInitialSession, sess)
}

// Close unsubscribes from the backend and waits for background work.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Store) handleAuthEvent(event models.AuthEvent, sess *models.Session) {
	s.logger.Debug(s.ctx, "auth event", "event", event)
	s.apply(event, sess)
}

// apply folds one event into the state. The latest event always wins; a
// profile fetch started for an older event is discarded on arrival.
func (s *Store) apply(event models.AuthEvent, sess *models.Session) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.state.Identity

	// A session without a user carries no identity, recovery or profile.
	next := State{Loading: false, Session: sess}
	if sess != nil && sess.User != nil {
		next.Identity = sess.User
		next.Recovery = s.state.Recovery || event == models.EventPasswordRecovery
		if prev != nil && prev.ID == next.Identity.ID {
			next.Profile = s.state.Profile
		}
	}
	next.version = s.state.version + 1
	s.state = next
	s.mu.Unlock()

	s.publish(next)

	if next.Identity != nil {
		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			s.loadProfile(s.ctx, gen, id)
		}(next.Identity.ID)
	}
}

func (s *Store) loadProfile(ctx context.Context, gen uint64, userID string) {
	p, err := s.auth.GetUserProfile(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "profile fetch failed", "user", userID, "err", err)
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.state.Identity == nil || s.state.Identity.ID != userID {
		s.mu.Unlock()
		return
	}
	s.state.Profile = p
	s.state.version++
	snap := s.state
	s.mu.Unlock()

	s.publish(snap)
}

// RefreshProfile re-reads the current identity's profile. A failure keeps
// the profile that is there.
func (s *Store) RefreshProfile(ctx context.Context) {
	s.mu.Lock()
	id := s.state.Identity
	gen := s.gen
	s.mu.Unlock()
	if id == nil {
		return
	}
	s.loadProfile(ctx, gen, id.ID)
}

// ClearRecovery lowers the Recovery flag.
func (s *Store) ClearRecovery() {
	s.mu.Lock()
	if !s.state.Recovery {
		s.mu.Unlock()
		return
	}
	s.state.Recovery = false
	s.state.version++
	snap := s.state
	s.mu.Unlock()
	s.publish(snap)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change. fn is called on the
// goroutine that made the change and must not block; a snapshot older than
// one already delivered to fn is skipped.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = &observer{fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish(snap State) {
	s.mu.Lock()
	obs := make([]*observer, 0, len(s.observers))
	for i := 0; i < s.nextObserver; i++ {
		if o, ok := s.observers[i]; ok {
			obs = append(obs, o)
		}
	}
	s.mu.Unlock()

	for _, o := range obs {
		if o.advance(snap.version) {
			o.fn(snap)
		}
	}
}

func (o *observer) advance(v uint64) bool {
	for {
		seen := o.seen.Load()
		if v <= seen {
			return false
		}
		if o.seen.CompareAndSwap(seen, v) {
			return true
		}
	}
}

// SignOut ends the session. The local sign-out call gets signOutTimeout to
// finish; if it does not, persisted tokens are scrubbed from client-side
// storage directly. A global revoke is started in the background and its
// outcome is only logged. The state is then cleared and the navigator is
// sent to the entry point. SignOut never fails from the caller's view.
func (s *Store) SignOut(ctx context.Context) {
	s.logger.Info(ctx, "signing out")

	localCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signOutTimeout)
	done := make(chan error, 1)
	go func() { done <- s.auth.SignOut(localCtx, models.ScopeLocal) }()

	timer := time.NewTimer(s.signOutTimeout)
	select {
	case err := <-done:
		if err != nil {
			s.logger.Warn(ctx, "local sign-out failed", "err", err)
		}
	case <-timer.C:
		s.logger.Warn(ctx, "local sign-out hung, forcing cleanup", "timeout", s.signOutTimeout)
	}
	timer.Stop()
	cancel()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rctx, cancel := context.WithTimeout(s.ctx, s.revokeTimeout)
		defer cancel()
		if err := s.auth.SignOut(rctx, models.ScopeGlobal); err != nil {
			s.logger.Warn(rctx, "global revoke failed", "err", err)
		}
	}()

	s.mu.Lock()
	s.gen++
	s.state = State{version: s.state.version + 1}
	snap := s.state
	s.mu.Unlock()
	s.publish(snap)

	// Runs after a clean sign-out as well, to catch stray tokens.
	s.scrubStorage(ctx)

	s.logger.Info(ctx, "signed out", "entry_point", s.entryPoint)
	if s.hardNavigate {
		s.nav.Assign(s.entryPoint)
	} else {
		s.nav.Navigate(s.entryPoint, true)
	}
}

// IsPersistentAuthKey matches the keys the backend client persists
// sessions under.
func IsPersistentAuthKey(k string) bool {
	return (strings.HasPrefix(k, common.AuthTokenKeyPrefix) && strings.HasSuffix(k, common.AuthTokenKeySuffix)) ||
		strings.Contains(strings.ToLower(k), common.VendorMarker)
}

// IsSessionAuthKey is the looser match used for per-process storage.
func IsSessionAuthKey(k string) bool {
	return strings.HasPrefix(k, common.AuthTokenKeyPrefix) || strings.Contains(strings.ToLower(k), common.VendorMarker)
}

func (s *Store) scrubStorage(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	scrub(ctx, s.logger, s.local, IsPersistentAuthKey)
	scrub(ctx, s.logger, s.session, IsSessionAuthKey)
}

func scrub(ctx context.Context, logger logging.Logger, r metadata.Repository, match func(string) bool) {
	if r == nil {
		return
	}
	keys, err := r.Keys(ctx)
	if err != nil {
		logger.Warn(ctx, "storage cleanup: list keys", "err", err)
		return
	}
	for _, k := range keys {
		if !match(k) {
			continue
		}
		if err := r.Delete(ctx, k); err != nil {
			logger.Warn(ctx, "storage cleanup: delete", "key", k, "err", err)
		}
	}
}
