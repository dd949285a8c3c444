package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tutorly/internal/client/nav"
	"github.com/dmitrijs2005/tutorly/internal/client/recovery"
	"github.com/dmitrijs2005/tutorly/internal/client/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (email, password string, err error) {
	email, err = getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err = getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

// SignUp prompts for an email and password and creates an account. When
// the backend wants the address confirmed first no session is returned and
// the user is told to check their mail.
func (a *App) SignUp(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}

	sess, err := a.authService.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if sess == nil {
		printlnFn("Check your email to confirm your account, then log in.")
		return nil
	}
	printlnFn("Signed up as", email)
	return nil
}

// Login prompts the user for credentials and signs in. The session store
// learns about the new session through the backend's auth events.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}

	if _, err := a.authService.SignIn(ctx, email, password); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		a.logger.Warn(ctx, "login failed", "err", err)
		return fmt.Errorf("login unsuccessful: %w", err)
	}
	printlnFn("Signed in as", email)
	return nil
}

// Logout signs out. It cannot fail; the location afterwards is reported.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	a.session.SignOut(ctx)
	printlnFn("Signed out. Now at", a.history.Current().String())
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	st := a.session.Snapshot()
	if st.Identity == nil {
		printlnFn("Not signed in.")
		return nil
	}
	name := st.Identity.Email
	if st.Profile != nil && st.Profile.DisplayName != "" {
		name = fmt.Sprintf("%s <%s>", st.Profile.DisplayName, st.Identity.Email)
	}
	printlnFn("Signed in as", name)
	if st.Recovery {
		printlnFn("A password recovery is in progress: run update-password.")
	}
	return nil
}

// ResetPassword asks for an email and requests a recovery mail for it.
func (a *App) ResetPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.authService.RequestPasswordReset(ctx, email); err != nil {
		return err
	}
	printlnFn("If an account exists for", email+", a reset link is on its way. Open it with: open <link>")
	return nil
}

// UpdatePassword sets a new password for the recovery session and then
// performs a full navigation to the entry point.
func (a *App) UpdatePassword(ctx context.Context) error {
	password, err := getPassword(a.reader, "New password", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword(a.reader, "Confirm password", a.out)
	if err != nil {
		return err
	}

	if err := a.authService.UpdatePassword(ctx, password, confirm); err != nil {
		return err
	}
	a.history.Assign(a.config.EntryPoint)
	printlnFn("Password updated. Now at", a.history.Current().String())
	return nil
}

// Open follows rawURL inside the client as if the user had clicked it. A
// password recovery link ends on the update-password screen.
func (a *App) Open(ctx context.Context, rawURL string) error {
	if _, err := nav.Parse(rawURL); err != nil {
		return fmt.Errorf("bad url: %w", err)
	}
	a.history.Navigate(rawURL, false)

	// A link that lands on the update-password screen is not redirected,
	// so its token pair is adopted here.
	loc := a.history.Current()
	if frag := recovery.ParseFragment(loc.Fragment); frag.IsRecovery() && frag.HasTokens() {
		_, err := a.detector.DetectSessionInURL(ctx, loc.Fragment)
		a.history.ReplaceURL(loc.WithoutFragment())
		if err != nil {
			a.logger.Error(ctx, "establishing recovery session", "err", err)
			return err
		}
		loc = a.history.Current()
	}

	if loc.Path == recovery.UpdatePasswordPath {
		printlnFn("Recovery link accepted. Choose a new password with: update-password")
		return nil
	}
	printlnFn("Now at", loc.String())
	return nil
}
