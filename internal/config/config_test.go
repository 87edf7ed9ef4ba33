package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePrefs(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spruce.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing prefs file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writePrefs(t, `url: https://jss.example.com
username: auditor
password: secret
verify_ssl: false
stale_days: 30
versions_to_keep: 2
`)
	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs.URL != "https://jss.example.com" || prefs.Username != "auditor" || prefs.Password != "secret" {
		t.Errorf("credentials = %q %q %q", prefs.URL, prefs.Username, prefs.Password)
	}
	if prefs.VerifySSL {
		t.Error("verify_ssl override not applied")
	}
	if prefs.StaleDays != 30 || prefs.VersionsToKeep != 2 {
		t.Errorf("thresholds = %d/%d, want 30/2", prefs.StaleDays, prefs.VersionsToKeep)
	}
	if prefs.FetchWorkers != 6 {
		t.Errorf("FetchWorkers default = %d, want 6", prefs.FetchWorkers)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writePrefs(t, `url: https://jss.example.com
username: auditor
password: secret
`)
	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !prefs.VerifySSL {
		t.Error("verify_ssl should default to true")
	}
	if prefs.StaleDays != 90 || prefs.VersionsToKeep != 1 || prefs.FetchWorkers != 6 {
		t.Errorf("defaults = %d/%d/%d, want 90/1/6", prefs.StaleDays, prefs.VersionsToKeep, prefs.FetchWorkers)
	}
}

func TestLoadEnvOnlyCredentials(t *testing.T) {
	t.Setenv("SPRUCE_URL", "https://jss.example.com")
	t.Setenv("SPRUCE_USERNAME", "env-auditor")
	t.Setenv("SPRUCE_PASSWORD", "env-secret")

	path := writePrefs(t, "stale_days: 45\n")
	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs.Username != "env-auditor" || prefs.Password != "env-secret" {
		t.Errorf("env credentials not picked up: %q %q", prefs.Username, prefs.Password)
	}
	if prefs.StaleDays != 45 {
		t.Errorf("StaleDays = %d, want 45", prefs.StaleDays)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	path := writePrefs(t, "stale_days: 45\n")
	_, err := Load(path)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestLoadInvalidThresholdsClamped(t *testing.T) {
	path := writePrefs(t, `url: https://jss.example.com
username: auditor
password: secret
stale_days: 0
versions_to_keep: -3
`)
	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs.StaleDays != 90 || prefs.VersionsToKeep != 1 {
		t.Errorf("clamped = %d/%d, want 90/1", prefs.StaleDays, prefs.VersionsToKeep)
	}
}

func TestLoadBadOverridePath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing override file")
	}
}
