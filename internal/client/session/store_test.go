package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/nav"
	"github.com/dmitrijs2005/tutorly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tutorly/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a scriptable backend.Auth.
type fakeAuth struct {
	backend.Auth

	mu          sync.Mutex
	session     *models.Session
	sessionErr  error
	profiles    map[string]*models.Profile
	profileErr  error
	profileGate chan struct{}
	handler     backend.AuthHandler
	localHang   chan struct{}
	globalErr   error
	scopes      []models.SignOutScope
	unsubCalls  int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{profiles: map[string]*models.Profile{}}
}

func (f *fakeAuth) GetSession(context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeAuth) OnAuthStateChange(h backend.AuthHandler) func() {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.unsubCalls++
		f.mu.Unlock()
	}
}

func (f *fakeAuth) emit(e models.AuthEvent, s *models.Session) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(e, s)
	}
}

func (f *fakeAuth) GetUserProfile(ctx context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	gate := f.profileGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id], f.profileErr
}

func (f *fakeAuth) SignOut(_ context.Context, scope models.SignOutScope) error {
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	hang := f.localHang
	err := f.globalErr
	f.mu.Unlock()

	if scope == models.ScopeLocal {
		if hang != nil {
			<-hang
		}
		f.emit(models.EventSignedOut, nil)
		return nil
	}
	return err
}

func (f *fakeAuth) signOutScopes() []models.SignOutScope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SignOutScope(nil), f.scopes...)
}

func sessionFor(id string) *models.Session {
	return &models.Session{AccessToken: "A-" + id, RefreshToken: "R-" + id, User: &models.Identity{ID: id, Email: id + "@example.com"}}
}

func newTestStore(t *testing.T, auth *fakeAuth, opts ...Option) (*Store, *nav.History, *metadata.MemoryRepository) {
	t.Helper()
	storage := metadata.NewMemoryRepository()
	h := nav.NewHistory(nav.Location{Path: "/dashboard"})
	s := New(auth, storage, h, logging.Discard(), opts...)
	t.Cleanup(s.Close)
	return s, h, storage
}

func TestInitialize_WithPersistedSession(t *testing.T) {
	auth := newFakeAuth()
	auth.session = sessionFor("u1")
	auth.profiles["u1"] = &models.Profile{ID: "u1", DisplayName: "Ada"}

	s, _, _ := newTestStore(t, auth)
	require.True(t, s.Snapshot().Loading)

	s.Initialize(context.Background())

	st := s.Snapshot()
	assert.False(t, st.Loading)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "u1", st.Identity.ID)
	require.Eventually(t, func() bool { return s.Snapshot().Profile != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Ada", s.Snapshot().Profile.DisplayName)
}

func TestInitialize_BackendDownFailsOpen(t *testing.T) {
	auth := newFakeAuth()
	auth.sessionErr = backend.ErrUnavailable

	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.True(t, st.Anonymous())
	assert.Nil(t, st.Session)
}

func TestAuthEvents_NullSessionClearsEverything(t *testing.T) {
	sequences := [][]models.AuthEvent{
		{models.EventSignedIn, models.EventSignedOut},
		{models.EventPasswordRecovery, models.EventSignedOut},
		{models.EventSignedIn, models.EventTokenRefreshed, models.EventPasswordRecovery, models.EventSignedOut},
	}
	for _, seq := range sequences {
		auth := newFakeAuth()
		auth.profiles["u1"] = &models.Profile{ID: "u1"}
		s, _, _ := newTestStore(t, auth)
		s.Initialize(context.Background())

		for i, e := range seq {
			if i == len(seq)-1 {
				auth.emit(e, nil)
			} else {
				auth.emit(e, sessionFor("u1"))
			}
		}
		s.Close()

		st := s.Snapshot()
		assert.Nil(t, st.Session, "%v", seq)
		assert.Nil(t, st.Identity, "%v", seq)
		assert.Nil(t, st.Profile, "%v", seq)
		assert.False(t, st.Recovery, "%v", seq)
	}
}

func TestAuthEvents_PasswordRecoveryRaisesFlag(t *testing.T) {
	auth := newFakeAuth()
	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())

	auth.emit(models.EventPasswordRecovery, sessionFor("u1"))
	assert.True(t, s.Snapshot().Recovery)

	auth.emit(models.EventTokenRefreshed, sessionFor("u1"))
	assert.True(t, s.Snapshot().Recovery, "only a null session or the redirector clears it")

	s.ClearRecovery()
	assert.False(t, s.Snapshot().Recovery)
}

func TestAuthEvents_SessionWithoutUserDropsRecoveryAndProfile(t *testing.T) {
	auth := newFakeAuth()
	auth.profiles["u1"] = &models.Profile{ID: "u1"}
	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())

	auth.emit(models.EventPasswordRecovery, sessionFor("u1"))
	require.Eventually(t, func() bool { return s.Snapshot().Profile != nil }, time.Second, 5*time.Millisecond)

	userless := &models.Session{AccessToken: "A", RefreshToken: "R"}
	auth.emit(models.EventTokenRefreshed, userless)
	st := s.Snapshot()
	assert.Same(t, userless, st.Session)
	assert.True(t, st.Anonymous())
	assert.Nil(t, st.Profile)
	assert.False(t, st.Recovery)

	auth.emit(models.EventTokenRefreshed, sessionFor("u1"))
	s.Close()
	assert.False(t, s.Snapshot().Recovery)
}

func TestAuthEvents_StaleProfileIsDropped(t *testing.T) {
	auth := newFakeAuth()
	gate := make(chan struct{})
	auth.profileGate = gate
	auth.profiles["u1"] = &models.Profile{ID: "u1", DisplayName: "first"}
	auth.profiles["u2"] = &models.Profile{ID: "u2", DisplayName: "second"}

	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())

	auth.emit(models.EventSignedIn, sessionFor("u1"))
	auth.emit(models.EventSignedIn, sessionFor("u2"))
	close(gate)

	require.Eventually(t, func() bool { return s.Snapshot().Profile != nil }, time.Second, 5*time.Millisecond)
	s.Close()
	st := s.Snapshot()
	assert.Equal(t, "u2", st.Identity.ID)
	assert.Equal(t, "second", st.Profile.DisplayName)
}

func TestAuthEvents_ProfileFailureLeavesProfileEmpty(t *testing.T) {
	auth := newFakeAuth()
	auth.profileErr = errors.New("relation does not exist")

	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())
	auth.emit(models.EventSignedIn, sessionFor("u1"))
	s.Close()

	st := s.Snapshot()
	assert.Equal(t, "u1", st.Identity.ID)
	assert.Nil(t, st.Profile)
}

func TestRefreshProfile(t *testing.T) {
	auth := newFakeAuth()
	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())

	s.RefreshProfile(context.Background())
	assert.Nil(t, s.Snapshot().Profile, "no identity, no fetch")

	auth.emit(models.EventSignedIn, sessionFor("u1"))
	s.wg.Wait()
	auth.mu.Lock()
	auth.profiles["u1"] = &models.Profile{ID: "u1", DisplayName: "renamed"}
	auth.mu.Unlock()

	s.RefreshProfile(context.Background())
	require.NotNil(t, s.Snapshot().Profile)
	assert.Equal(t, "renamed", s.Snapshot().Profile.DisplayName)
}

func TestSubscribe_ReceivesChangesUntilUnsubscribed(t *testing.T) {
	auth := newFakeAuth()
	s, _, _ := newTestStore(t, auth)

	var mu sync.Mutex
	var ids []string
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		if st.Identity == nil {
			ids = append(ids, "")
			return
		}
		if len(ids) == 0 || ids[len(ids)-1] != st.Identity.ID {
			ids = append(ids, st.Identity.ID)
		}
	})

	s.Initialize(context.Background())
	auth.emit(models.EventSignedIn, sessionFor("u1"))
	s.Close()
	unsubscribe()
	auth.mu.Lock()
	auth.handler = nil
	auth.mu.Unlock()
	s.apply(models.EventSignedIn, sessionFor("u2"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "u1"}, ids)
}

func TestClose_Unsubscribes(t *testing.T) {
	auth := newFakeAuth()
	s, _, _ := newTestStore(t, auth)
	s.Initialize(context.Background())
	s.Close()

	auth.emit(models.EventSignedIn, sessionFor("u1"))
	assert.True(t, s.Snapshot().Anonymous())
	assert.Equal(t, 1, auth.unsubCalls)
}

func TestSignOut_CleanPath(t *testing.T) {
	auth := newFakeAuth()
	auth.session = sessionFor("u1")
	s, h, storage := newTestStore(t, auth)
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, "sb-stray-auth-token", []byte("x")))
	require.NoError(t, storage.Set(ctx, "theme", []byte("dark")))

	s.Initialize(ctx)
	s.SignOut(ctx)

	st := s.Snapshot()
	assert.True(t, st.Anonymous())
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Equal(t, []nav.Location{{Path: "/login"}}, h.Entries())
	assert.Equal(t, 1, h.Reloads())

	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, keys)

	require.Eventually(t, func() bool { return len(auth.signOutScopes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.SignOutScope{models.ScopeLocal, models.ScopeGlobal}, auth.signOutScopes())
}

func TestSignOut_HungLocalCallForcesCleanup(t *testing.T) {
	auth := newFakeAuth()
	auth.session = sessionFor("u1")
	auth.localHang = make(chan struct{})
	t.Cleanup(func() { close(auth.localHang) })

	sessionStorage := metadata.NewMemoryRepository()
	s, h, storage := newTestStore(t, auth, WithSignOutTimeout(50*time.Millisecond), WithSessionStorage(sessionStorage))
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, "sb-abcd-auth-token", []byte(`{"access_token":"A"}`)))
	require.NoError(t, storage.Set(ctx, "supabase.auth.token", []byte("x")))
	require.NoError(t, storage.Set(ctx, "sb-abcd-code-verifier", []byte("kept")))
	require.NoError(t, sessionStorage.Set(ctx, "sb-abcd-code-verifier", []byte("x")))
	require.NoError(t, sessionStorage.Set(ctx, "draft", []byte("kept")))

	s.Initialize(ctx)
	require.False(t, s.Snapshot().Anonymous())

	start := time.Now()
	s.SignOut(ctx)
	assert.Less(t, time.Since(start), time.Second)

	st := s.Snapshot()
	assert.True(t, st.Anonymous())
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Equal(t, "/login", h.Current().Path)

	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sb-abcd-code-verifier"}, keys)

	keys, err = sessionStorage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, keys)
}

func TestSignOut_GlobalRevokeFailureIsSwallowed(t *testing.T) {
	auth := newFakeAuth()
	auth.session = sessionFor("u1")
	auth.globalErr = backend.ErrUnavailable

	s, h, _ := newTestStore(t, auth)
	s.Initialize(context.Background())
	s.SignOut(context.Background())
	s.Close()

	assert.True(t, s.Snapshot().Anonymous())
	assert.Equal(t, "/login", h.Current().Path)
	assert.Contains(t, auth.signOutScopes(), models.ScopeGlobal)
}

func TestSignOut_SoftNavigationAndCustomEntryPoint(t *testing.T) {
	auth := newFakeAuth()
	s, h, _ := newTestStore(t, auth, WithHardNavigation(false), WithEntryPoint("/"))
	s.Initialize(context.Background())
	s.SignOut(context.Background())

	assert.Zero(t, h.Reloads())
	assert.Equal(t, []nav.Location{{Path: "/"}}, h.Entries())
}

func TestAuthKeyMatchers(t *testing.T) {
	assert.True(t, IsPersistentAuthKey("sb-abcd-auth-token"))
	assert.True(t, IsPersistentAuthKey("my-SUPABASE-cache"))
	assert.False(t, IsPersistentAuthKey("sb-abcd-code-verifier"))
	assert.False(t, IsPersistentAuthKey("auth-token"))

	assert.True(t, IsSessionAuthKey("sb-abcd-code-verifier"))
	assert.True(t, IsSessionAuthKey("Supabase"))
	assert.False(t, IsSessionAuthKey("draft"))
}
