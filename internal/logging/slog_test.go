package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewTextLogger(&buf, slog.LevelDebug), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newBufferedLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_WithCarriesAttributes(t *testing.T) {
	log, buf := newBufferedLogger(t)

	log.With("component", "session", "user", "u-1").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, want := range []string{"component=session", "user=u-1", "k=v", "msg=hello"} {
		assert.Contains(t, out, want)
	}
}

func TestDiscard_WritesNothing(t *testing.T) {
	log := Discard()
	require.NotPanics(t, func() {
		log.Error(context.TODO(), "dropped")
		log.With("x", 1).Warn(context.TODO(), "dropped too")
	})
}
