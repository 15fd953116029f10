// Package config loads gemstall's runtime configuration from an optional
// TOML file plus GEMSTALL_* environment overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration deserializes both Go duration strings ("30s", "5m") and plain
// second counts.
type Duration time.Duration

// UnmarshalText accepts duration strings or integer seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue returns the underlying time.Duration.
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Config describes gemstall's runtime behavior.
type Config struct {
	// CacheDir is the persistent cache root. Ignored when NoCache is set.
	CacheDir string `mapstructure:"CacheDir"`
	// NoCache switches to a process-lifetime ephemeral cache.
	NoCache bool `mapstructure:"NoCache"`
	// MaxConcurrentRequests bounds per-source downloads in flight.
	MaxConcurrentRequests int      `mapstructure:"MaxConcurrentRequests"`
	LogLevel              string   `mapstructure:"LogLevel"`
	LogFilePath           string   `mapstructure:"LogFilePath"`
	LogMaxSize            int      `mapstructure:"LogMaxSize"`
	LogMaxBackups         int      `mapstructure:"LogMaxBackups"`
	LogCompress           bool     `mapstructure:"LogCompress"`
	UpstreamTimeout       Duration `mapstructure:"UpstreamTimeout"`
}
