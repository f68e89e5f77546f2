package config

import (
	"os"
	"testing"
	"time"
)

// unset clears a variable for the test while letting t.Setenv restore
// whatever value the environment had.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LIMITED_API_URL", "LIMITED_STATE_PATH",
		"LIMITED_HTTP_TIMEOUT", "LIMITED_REDIRECT_DELAY",
	} {
		unset(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected api url %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.HTTPTimeout)
	}
	if cfg.RedirectDelay != 3*time.Second {
		t.Fatalf("unexpected redirect delay %v", cfg.RedirectDelay)
	}
	if cfg.StatePath == "" {
		t.Fatalf("state path default missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LIMITED_API_URL", "https://api.limited.example")
	t.Setenv("LIMITED_STATE_PATH", "/tmp/limited-test/creds.db")
	t.Setenv("LIMITED_REDIRECT_DELAY", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.limited.example" {
		t.Fatalf("unexpected api url %q", cfg.APIBaseURL)
	}
	if cfg.StatePath != "/tmp/limited-test/creds.db" {
		t.Fatalf("unexpected state path %q", cfg.StatePath)
	}
	if cfg.RedirectDelay != 500*time.Millisecond {
		t.Fatalf("unexpected redirect delay %v", cfg.RedirectDelay)
	}
}
