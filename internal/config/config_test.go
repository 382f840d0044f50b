package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Matching.MaxResults != 10 {
		t.Fatalf("unexpected default matching max results: %d", cfg.Matching.MaxResults)
	}
	if cfg.Moderation.SuspensionDuration != 7*24*time.Hour {
		t.Fatalf("unexpected default suspension duration: %v", cfg.Moderation.SuspensionDuration)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("http:\n  addr: \":9090\"\nmoderation:\n  flag_max_per_hour: 5\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("FLAG_MAX_PER_HOUR", "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("yaml http addr not applied: %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env log level not applied: %q", cfg.Log.Level)
	}
	if cfg.Moderation.FlagMaxPerHour != 9 {
		t.Fatalf("env should win over yaml: got %d want 9", cfg.Moderation.FlagMaxPerHour)
	}
}

func TestLoadRejectsInvalidDurationOverride(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration override")
	}
}
