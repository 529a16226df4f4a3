package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "webcapd.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
browsers:
  - ws://localhost:9222
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeouts.PageLoadMs != 30000 {
		t.Fatalf("want default 30000, got %d", cfg.Timeouts.PageLoadMs)
	}
	if cfg.Timeouts.CaptureMs != 10000 {
		t.Fatalf("want default 10000, got %d", cfg.Timeouts.CaptureMs)
	}
	if cfg.MaxRetries != 2 {
		t.Fatalf("want default 2, got %d", cfg.MaxRetries)
	}
	if cfg.Viewport.Width != 1280 || cfg.Viewport.Height != 800 {
		t.Fatalf("want default 1280x800, got %dx%d", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if len(cfg.Browsers) != 1 || cfg.Browsers[0].Endpoint != "ws://localhost:9222" {
		t.Fatalf("want one browser with bare-string endpoint, got %+v", cfg.Browsers)
	}
}

func TestLoadPerBrowserSlowMoOverridesGlobalDefault(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
slow_mo_ms: 100
browsers:
  - endpoint: ws://localhost:9222
  - endpoint: ws://localhost:9223
    slow_mo_ms: 250
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Browsers) != 2 {
		t.Fatalf("want 2 browsers, got %d", len(cfg.Browsers))
	}
	if got := cfg.Browsers[0].EffectiveSlowMoMs(cfg.SlowMoMs); got != 100 {
		t.Fatalf("want global fallback 100, got %d", got)
	}
	if got := cfg.Browsers[1].EffectiveSlowMoMs(cfg.SlowMoMs); got != 250 {
		t.Fatalf("want per-browser override 250, got %d", got)
	}
}

func TestLoadRejectsBrowserWithEmptyEndpoint(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
browsers:
  - slow_mo_ms: 100
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for browser missing endpoint")
	}
}

func TestLoadRejectsMissingOutputDir(t *testing.T) {
	path := writeTestConfig(t, `
browsers:
  - ws://localhost:9222
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing output_dir")
	}
}

func TestLoadRejectsNoBrowsers(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty browsers list")
	}
}

func TestLoadRejectsInvalidStorageBackend(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
browsers:
  - ws://localhost:9222
storage:
  backend: s3
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown storage backend")
	}
}

func TestLoadRequiresBucketForGCSBackend(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
browsers:
  - ws://localhost:9222
storage:
  backend: gcs
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for gcs backend without bucket")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTestConfig(t, `
output_dir: /tmp/out
browsers:
  - ws://localhost:9222
`)

	t.Setenv("WEBCAPD_MAX_RETRIES", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("want env override 5, got %d", cfg.MaxRetries)
	}
}
