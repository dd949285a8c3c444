package config

import "time"

// Config holds runtime settings for the Tutorly client.
//
// Fields:
//   - BackendURL, AnonKey: project URL and public API key of the backend.
//   - ContentSource: where course documents live; an http(s) base URL,
//     an s3://bucket/prefix URL or a local directory.
//   - S3*: region, endpoint and static credentials for s3:// sources.
//   - DatabaseDSN: SQLite file for client-side storage.
//   - ProgressDSN: optional Postgres DSN; when set, progress is read and
//     written there instead of through the REST backend.
//   - SignOutTimeout: how long sign-out waits for the backend before
//     scrubbing tokens locally.
//   - RequestTimeout: per-request HTTP timeout.
//   - EntryPoint: where sign-out lands.
//   - RedirectURL: link target put into password reset mails.
//   - HardNavigate: full navigation (true) or in-app route change after
//     sign-out.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	BackendURL     string
	AnonKey        string
	ContentSource  string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	DatabaseDSN    string
	ProgressDSN    string
	SignOutTimeout time.Duration
	RequestTimeout time.Duration
	EntryPoint     string
	RedirectURL    string
	HardNavigate   bool
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.ContentSource = "./content"
	c.S3Region = "us-east-1"
	c.DatabaseDSN = "tutorly.db"
	c.SignOutTimeout = 6 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.EntryPoint = "/login"
	c.RedirectURL = "http://localhost:5173/update-password"
	c.HardNavigate = true
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
