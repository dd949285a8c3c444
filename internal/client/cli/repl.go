package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	SignUp(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	UpdatePassword(ctx context.Context) error
	Open(ctx context.Context, rawURL string) error
	Course(ctx context.Context, slug string) error
	Lesson(ctx context.Context, course, lesson string) error
	Quiz(ctx context.Context, course, lesson string) error
	Progress(ctx context.Context, course string) error
}

// runREPL starts a simple read-eval-print loop for the Tutorly CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands and missing arguments are
// reported back to the user. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                      show available commands
//	  - open <url>                follow a link, e.g. a password recovery link
//	  - course <course>           show a course outline
//	  - lesson <course> <lesson>  read a lesson
//	  - quiz <course> <lesson>    take the lesson's quiz
//	  - update-password           set a new password after opening a reset link
//	  - exit | quit               leave the program
//
//	Not logged in:
//	  - signup | login | reset-password
//
//	Logged in:
//	  - whoami | progress [course] | logout
//
// Errors returned by command handlers are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tutorly %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, course, lesson, quiz, progress, open, update-password, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, reset-password, open, update-password, course, lesson, quiz, exit")
			}

		case "signup", "register":
			report(a.SignUp(ctx))

		case "login":
			report(a.Login(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "whoami":
			report(a.WhoAmI(ctx))

		case "reset-password":
			report(a.ResetPassword(ctx))

		case "update-password":
			report(a.UpdatePassword(ctx))

		case "open":
			if len(args) != 1 {
				printlnFn("Usage: open <url>")
				continue
			}
			report(a.Open(ctx, args[0]))

		case "course":
			if len(args) != 1 {
				printlnFn("Usage: course <course>")
				continue
			}
			report(a.Course(ctx, args[0]))

		case "lesson":
			if len(args) != 2 {
				printlnFn("Usage: lesson <course> <lesson>")
				continue
			}
			report(a.Lesson(ctx, args[0], args[1]))

		case "quiz":
			if len(args) != 2 {
				printlnFn("Usage: quiz <course> <lesson>")
				continue
			}
			report(a.Quiz(ctx, args[0], args[1]))

		case "progress":
			course := ""
			if len(args) > 0 {
				course = args[0]
			}
			report(a.Progress(ctx, course))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	if err != nil {
		printlnFn("Error:", err)
	}
}
