package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gemstall.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MaxConcurrentRequests != 10 {
		t.Fatalf("default concurrency: %d", cfg.MaxConcurrentRequests)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level: %s", cfg.LogLevel)
	}
	if cfg.UpstreamTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("default timeout: %v", cfg.UpstreamTimeout.DurationValue())
	}
	if cfg.CacheDir == "" {
		t.Fatal("default cache dir empty")
	}
	if !filepath.IsAbs(cfg.CacheDir) {
		t.Fatalf("cache dir not absolute: %s", cfg.CacheDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
CacheDir = "./gem-cache"
MaxConcurrentRequests = 4
LogLevel = "debug"
UpstreamTimeout = "90s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MaxConcurrentRequests != 4 {
		t.Fatalf("concurrency: %d", cfg.MaxConcurrentRequests)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %s", cfg.LogLevel)
	}
	if cfg.UpstreamTimeout.DurationValue() != 90*time.Second {
		t.Fatalf("timeout: %v", cfg.UpstreamTimeout.DurationValue())
	}
	if !filepath.IsAbs(cfg.CacheDir) {
		t.Fatalf("cache dir not resolved: %s", cfg.CacheDir)
	}
}

func TestLoadDurationAsSeconds(t *testing.T) {
	path := writeConfig(t, "UpstreamTimeout = 45\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.UpstreamTimeout.DurationValue() != 45*time.Second {
		t.Fatalf("timeout: %v", cfg.UpstreamTimeout.DurationValue())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadRejectsInvalidConcurrency(t *testing.T) {
	path := writeConfig(t, "MaxConcurrentRequests = -1\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	fieldErr, ok := err.(FieldError)
	if !ok {
		t.Fatalf("error type: %T", err)
	}
	if fieldErr.Field != "MaxConcurrentRequests" {
		t.Fatalf("field: %s", fieldErr.Field)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEMSTALL_MAXCONCURRENTREQUESTS", "7")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MaxConcurrentRequests != 7 {
		t.Fatalf("env override ignored: %d", cfg.MaxConcurrentRequests)
	}
}

func TestLoadCacheDirEnvOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "env-cache")
	t.Setenv("GEMSTALL_CACHEDIR", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.CacheDir != dir {
		t.Fatalf("env override ignored: %q", cfg.CacheDir)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("5m")); err != nil || d.DurationValue() != 5*time.Minute {
		t.Fatalf("duration string: %v %v", d.DurationValue(), err)
	}
	if err := d.UnmarshalText([]byte("15")); err != nil || d.DurationValue() != 15*time.Second {
		t.Fatalf("integer seconds: %v %v", d.DurationValue(), err)
	}
	if err := d.UnmarshalText([]byte("nonsense")); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
