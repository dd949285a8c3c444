package recovery

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/nav"
	"github.com/dmitrijs2005/tutorly/internal/client/session"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

const UpdatePasswordPath = "/update-password"

// SessionSetter establishes a session from a token pair.
type SessionSetter interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
}

// History is the part of nav.History the redirector drives.
type History interface {
	Current() nav.Location
	ReplaceURL(loc nav.Location)
	Navigate(path string, replace bool)
	OnChange(fn func(nav.Location)) (remove func())
}

// Flag exposes the session store's Recovery flag.
type Flag interface {
	Snapshot() session.State
	ClearRecovery()
	Subscribe(fn func(session.State)) (unsubscribe func())
}

type Redirector struct {
	auth    SessionSetter
	flag    Flag
	history History
	logger  logging.Logger

	running atomic.Bool
}

func NewRedirector(auth SessionSetter, flag Flag, history History, logger logging.Logger) *Redirector {
	return &Redirector{auth: auth, flag: flag, history: history, logger: logger.With("component", "recovery")}
}

// Run inspects the current location once. When a recovery is pending and
// the user is not yet on the update-password screen, it adopts the token
// pair from the fragment (if any), strips the fragment, replace-navigates to
// UpdatePasswordPath and clears the Recovery flag. It reports whether it
// redirected. A nested call made while Run is in progress returns false.
func (r *Redirector) Run(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}
	defer r.running.Store(false)

	loc := r.history.Current()
	frag := ParseFragment(loc.Fragment)
	if !(r.flag.Snapshot().Recovery || frag.IsRecovery()) || loc.Path == UpdatePasswordPath {
		return false
	}

	if frag.IsRecovery() && frag.HasTokens() {
		if _, err := r.auth.SetSession(ctx, frag.AccessToken, frag.RefreshToken); err != nil {
			r.logger.Error(ctx, "establishing recovery session", "err", err)
		}
	}

	r.history.ReplaceURL(loc.WithoutFragment())
	r.history.Navigate(UpdatePasswordPath, true)
	r.flag.ClearRecovery()
	r.logger.Info(ctx, "redirected to password update", "from", loc.Path)
	return true
}

// Mount runs the redirector now, after every navigation, and whenever the
// Recovery flag is raised. The returned func detaches it.
func (r *Redirector) Mount(ctx context.Context) (unmount func()) {
	removeNav := r.history.OnChange(func(nav.Location) { r.Run(ctx) })
	removeFlag := r.flag.Subscribe(func(st session.State) {
		if st.Recovery {
			r.Run(ctx)
		}
	})
	r.Run(ctx)
	return func() {
		removeNav()
		removeFlag()
	}
}
