package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:54321", c.BackendURL)
	assert.Equal(t, 6*time.Second, c.SignOutTimeout)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "/login", c.EntryPoint)
	assert.True(t, c.HardNavigate)
	assert.Empty(t, c.ProgressDSN)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:54321", cfg.BackendURL)
	assert.Equal(t, 6*time.Second, cfg.SignOutTimeout)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"backend_url":      "https://json.supabase.co",
		"anon_key":         "json-key",
		"sign_out_timeout": "2s",
	})
	os.Args = []string{"testbin", "-c", path, "-u", "https://flag.supabase.co"}

	cfg := LoadConfig()

	assert.Equal(t, "https://flag.supabase.co", cfg.BackendURL)
	assert.Equal(t, "json-key", cfg.AnonKey)
	assert.Equal(t, 2*time.Second, cfg.SignOutTimeout)
	assert.Equal(t, "/login", cfg.EntryPoint)
}
