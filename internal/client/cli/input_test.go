package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubTerminal(t *testing.T, tty bool, read func(int) ([]byte, error)) {
	t.Helper()
	origTTY, origRead := isTerminal, readPassword
	isTerminal = func(int) bool { return tty }
	if read != nil {
		readPassword = read
	}
	t.Cleanup(func() {
		isTerminal = origTTY
		readPassword = origRead
	})
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Name?\n> " {
		t.Fatalf("prompt = %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.ErrorIs(t, err, io.EOF)
}

func TestGetPassword_Terminal(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret"), nil })

	var out bytes.Buffer
	pw, err := GetPassword(rdr("ignored\n"), "Enter password", &out)
	require.NoError(t, err)
	require.Equal(t, "s3cret", pw)
	require.Equal(t, "Enter password: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })

	_, err := GetPassword(rdr(""), "Enter password", io.Discard)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetPassword_PipedInput(t *testing.T) {
	stubTerminal(t, false, func(int) ([]byte, error) {
		t.Fatal("terminal must not be read")
		return nil, nil
	})

	pw, err := GetPassword(rdr("from-pipe\nnext\n"), "Enter password", io.Discard)
	require.NoError(t, err)
	require.Equal(t, "from-pipe", pw)
}

func TestGetChoice(t *testing.T) {
	choices := []string{"a", "b", "c"}
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "first", input: "1\n", want: 0},
		{name: "last", input: "3\n", want: 2},
		{name: "out of range", input: "4\n", want: -1},
		{name: "zero", input: "0\n", want: -1},
		{name: "not a number", input: "b\n", want: -1},
		{name: "padded", input: "  2 \n", want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetChoice(rdr(tc.input), "Pick", choices, io.Discard)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestGetChoice_ListsChoices(t *testing.T) {
	var out bytes.Buffer
	_, err := GetChoice(rdr("1\n"), "Which?", []string{"yes", "no"}, &out)
	require.NoError(t, err)
	require.Equal(t, "Which?\n  1) yes\n  2) no\n> ", out.String())
}
