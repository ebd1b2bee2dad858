package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadLayersYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path := filepath.Join(dir, "config.yaml")
	yml := "database_url: postgres://yaml\nsession_secret: from-yaml\nremote_timeout: 3s\nhttp_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SESSION_SECRET", "from-env")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://yaml" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.SessionSecret != "from-env" {
		t.Errorf("env should win over yaml, got %q", cfg.SessionSecret)
	}
	if cfg.RemoteTimeout != 3*time.Second {
		t.Errorf("RemoteTimeout = %v", cfg.RemoteTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.RemoteMaxRetries != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.APIBaseURL != "http://localhost:9000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing required settings")
	}
	for _, want := range []string{"DATABASE_URL", "SESSION_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg.DatabaseURL, cfg.SessionSecret = "postgres://x", "s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.MetricsUser = "ops"
	if err := cfg.Validate(); err == nil {
		t.Fatal("metrics user without hash accepted")
	}
}
