package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/nav"
	"github.com/dmitrijs2005/tutorly/internal/client/session"
	"github.com/dmitrijs2005/tutorly/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSetter struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
	onSet func()
}

func (f *fakeSetter) SetSession(_ context.Context, access, refresh string) (*models.Session, error) {
	f.mu.Lock()
	f.calls = append(f.calls, [2]string{access, refresh})
	onSet := f.onSet
	f.mu.Unlock()
	if onSet != nil {
		onSet()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{AccessToken: access, RefreshToken: refresh}, nil
}

type fakeFlag struct {
	mu        sync.Mutex
	recovery  bool
	clears    int
	observers []func(session.State)
}

func (f *fakeFlag) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.State{Recovery: f.recovery}
}

func (f *fakeFlag) ClearRecovery() {
	f.mu.Lock()
	f.recovery = false
	f.clears++
	f.mu.Unlock()
}

func (f *fakeFlag) Subscribe(fn func(session.State)) func() {
	f.mu.Lock()
	f.observers = append(f.observers, fn)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.observers = nil
		f.mu.Unlock()
	}
}

func (f *fakeFlag) raise() {
	f.mu.Lock()
	f.recovery = true
	obs := append([]func(session.State){}, f.observers...)
	f.mu.Unlock()
	for _, fn := range obs {
		fn(session.State{Recovery: true})
	}
}

func newRedirector(start string) (*Redirector, *fakeSetter, *fakeFlag, *nav.History) {
	loc, _ := nav.Parse(start)
	h := nav.NewHistory(loc)
	setter := &fakeSetter{}
	flag := &fakeFlag{}
	return NewRedirector(setter, flag, h, logging.Discard()), setter, flag, h
}

func TestRun_RecoveryFragment(t *testing.T) {
	r, setter, flag, h := newRedirector("/#type=recovery&access_token=A&refresh_token=B")

	require.True(t, r.Run(context.Background()))

	assert.Equal(t, [][2]string{{"A", "B"}}, setter.calls)
	assert.Equal(t, []nav.Location{{Path: UpdatePasswordPath}}, h.Entries())
	assert.Empty(t, h.Current().Fragment)
	assert.Equal(t, 1, flag.clears)
}

func TestRun_IsIdempotent(t *testing.T) {
	r, setter, _, h := newRedirector("/#type=recovery&access_token=A&refresh_token=B")
	navigations := 0
	h.OnChange(func(nav.Location) { navigations++ })

	require.True(t, r.Run(context.Background()))
	require.False(t, r.Run(context.Background()))

	assert.Equal(t, 1, navigations)
	assert.Len(t, setter.calls, 1)
}

func TestRun_FailedSetSessionStillRedirects(t *testing.T) {
	r, setter, _, h := newRedirector("/?x=1#type=recovery&access_token=A&refresh_token=B")
	setter.err = errors.New("token expired")

	require.True(t, r.Run(context.Background()))
	assert.Equal(t, UpdatePasswordPath, h.Current().Path)
}

func TestRun_FlagWithoutFragment(t *testing.T) {
	r, setter, flag, h := newRedirector("/dashboard")
	flag.recovery = true

	require.True(t, r.Run(context.Background()))

	assert.Empty(t, setter.calls)
	assert.Equal(t, UpdatePasswordPath, h.Current().Path)
	assert.False(t, flag.Snapshot().Recovery)
}

func TestRun_NoTokensNoSetSession(t *testing.T) {
	r, setter, _, h := newRedirector("/#type=recovery&access_token=A")

	require.True(t, r.Run(context.Background()))
	assert.Empty(t, setter.calls)
	assert.Equal(t, UpdatePasswordPath, h.Current().Path)
}

func TestRun_NothingPending(t *testing.T) {
	for _, start := range []string{"/dashboard", "/#type=signup&access_token=A&refresh_token=B", "/courses#section-2"} {
		r, setter, flag, h := newRedirector(start)
		assert.False(t, r.Run(context.Background()), start)
		assert.Empty(t, setter.calls, start)
		assert.Len(t, h.Entries(), 1, start)
		assert.Zero(t, flag.clears, start)
	}
}

func TestRun_AlreadyOnUpdatePassword(t *testing.T) {
	r, setter, flag, h := newRedirector("/update-password#type=recovery&access_token=A&refresh_token=B")
	flag.recovery = true

	require.False(t, r.Run(context.Background()))
	assert.Empty(t, setter.calls)
	assert.Equal(t, "type=recovery&access_token=A&refresh_token=B", h.Current().Fragment)
}

func TestRun_NestedRunDuringSetSession(t *testing.T) {
	r, setter, flag, h := newRedirector("/#type=recovery&access_token=A&refresh_token=B")
	nested := true
	// SetSession fires an auth event, which reaches the redirector again.
	setter.onSet = func() { nested = r.Run(context.Background()) }

	require.True(t, r.Run(context.Background()))
	assert.False(t, nested)
	assert.Len(t, setter.calls, 1)
	assert.Equal(t, 1, flag.clears)
	assert.Equal(t, UpdatePasswordPath, h.Current().Path)
}

func TestMount_ReactsToFlagAndNavigation(t *testing.T) {
	r, _, flag, h := newRedirector("/dashboard")
	unmount := r.Mount(context.Background())

	assert.Equal(t, "/dashboard", h.Current().Path)

	flag.raise()
	assert.Equal(t, UpdatePasswordPath, h.Current().Path)

	h.Navigate("/courses#type=recovery", false)
	assert.Equal(t, UpdatePasswordPath, h.Current().Path, "navigation carrying the marker is redirected")

	unmount()
	h.Navigate("/courses#type=recovery", false)
	assert.Equal(t, "/courses", h.Current().Path)
}
