package cli

import (
	"context"
	"fmt"
)

// getStatus renders "(email path)" for the prompt.
func (a *App) getStatus() string {
	s := ""
	if st := a.session.Snapshot(); st.Identity != nil {
		s = st.Identity.Email + " "
	}
	if a.history != nil {
		s += a.history.Current().Path
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root prints the banner and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Tutorly CLI (type 'help' for commands)")
	if st := a.session.Snapshot(); st.Identity != nil {
		printlnFn("Signed in as", st.Identity.Email)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}
