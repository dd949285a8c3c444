// Package cli provides the interactive Tutorly command-line client.
//
// It wires configuration, client-side storage, the backend client, the
// session store, the recovery redirector and the progress tracker, then runs
// a REPL over them. Typical flow: sign in, open a course, read a lesson, take
// its quiz and watch the course progress move.
//
// Key features:
//   - Sign up / Sign in / Sign out
//   - Password reset request and, after opening the emailed link, password
//     update
//   - Course outline, lesson reader and quiz with a 70% pass mark
//   - Server-computed course progress
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See NewApp and runREPL for details.
package cli
