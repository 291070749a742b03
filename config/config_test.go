package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// writeTempConfig writes a configuration file with the given content and
// returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Epiflow.Name != "epiflow" {
		t.Errorf("unexpected name: %s", cfg.Epiflow.Name)
	}
	if cfg.Source.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.Source.Timeout)
	}
	if cfg.Cache.StaleAfter != time.Hour {
		t.Errorf("unexpected stale_after: %v", cfg.Cache.StaleAfter)
	}
	if cfg.Source.FeedURL == "" {
		t.Error("default feed URL missing")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeTempConfig(t, `epiflow:
  name: "epiflow"
  version: "9.9"
source:
  timeout: 3s
  user_agent: "custom-agent/1.0"
cache:
  stale_after: 30m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Epiflow.Version != "9.9" {
		t.Errorf("unexpected version: %s", cfg.Epiflow.Version)
	}
	if cfg.Source.Timeout != 3*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.Source.Timeout)
	}
	if cfg.Cache.StaleAfter != 30*time.Minute {
		t.Errorf("unexpected stale_after: %v", cfg.Cache.StaleAfter)
	}
	// Untouched keys keep their defaults.
	if cfg.Source.PopulationURL == "" {
		t.Error("overlay wiped the default population URL")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EPIFLOW_CACHE_DIR", "/tmp/epiflow-test-cache")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Dir != "/tmp/epiflow-test-cache" {
		t.Errorf("unexpected cache dir: %s", cfg.Cache.Dir)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing version",
			content: "epiflow:\n  version: \"\"\n",
			wantErr: "epiflow.version",
		},
		{
			name:    "zero timeout",
			content: "source:\n  timeout: 0s\n",
			wantErr: "source.timeout",
		},
		{
			name:    "empty feed url",
			content: "source:\n  feed_url: \"\"\n",
			wantErr: "source.feed_url",
		},
		{
			name:    "zero stale after",
			content: "cache:\n  stale_after: 0s\n",
			wantErr: "cache.stale_after",
		},
	}
	for _, c := range cases {
		path := writeTempConfig(t, c.content)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.wantErr) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.wantErr)
		}
	}
}

func TestUserAgent(t *testing.T) {
	cfg := Default()
	if got := cfg.UserAgent(); got != "epiflow/0.3.0" {
		t.Errorf("derived user agent: got %q", got)
	}
	cfg.Source.UserAgent = "override/2"
	if got := cfg.UserAgent(); got != "override/2" {
		t.Errorf("override user agent: got %q", got)
	}
}
