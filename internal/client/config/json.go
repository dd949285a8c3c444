package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tutorly/internal/flagx"
	"github.com/dmitrijs2005/tutorly/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration so files may say "6s" or give nanoseconds. Pointer
// fields tell an explicit false from an absent key.
type JsonConfig struct {
	BackendURL     string         `json:"backend_url"`
	AnonKey        string         `json:"anon_key"`
	ContentSource  string         `json:"content_source"`
	S3Region       string         `json:"s3_region"`
	S3Endpoint     string         `json:"s3_endpoint"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	DatabaseDSN    string         `json:"database_dsn"`
	ProgressDSN    string         `json:"progress_dsn"`
	SignOutTimeout timex.Duration `json:"sign_out_timeout"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	EntryPoint     string         `json:"entry_point"`
	RedirectURL    string         `json:"redirect_url"`
	HardNavigate   *bool          `json:"hard_navigate"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays Config with the keys present in the JSON file named by
// -c or -config. Without either flag it does nothing. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.ContentSource, jc.ContentSource)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.ProgressDSN, jc.ProgressDSN)
	setString(&cfg.EntryPoint, jc.EntryPoint)
	setString(&cfg.RedirectURL, jc.RedirectURL)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.SignOutTimeout.Duration > 0 {
		cfg.SignOutTimeout = jc.SignOutTimeout.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HardNavigate != nil {
		cfg.HardNavigate = *jc.HardNavigate
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
