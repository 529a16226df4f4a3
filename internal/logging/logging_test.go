package logging

import (
	"path/filepath"
	"testing"

	"github.com/tomasbasham/webcapd/internal/config"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "verbose", Format: "text"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewJSONFormatter(t *testing.T) {
	log, err := New(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Level.String() != "info" {
		t.Fatalf("want info, got %s", log.Level)
	}
}

func TestNewWithFileRotationDoesNotError(t *testing.T) {
	dir := t.TempDir()
	log, err := New(config.LogConfig{
		Level:  "debug",
		Format: "text",
		FileRotation: config.FileRotation{
			Path:       filepath.Join(dir, "webcapd.log"),
			MaxSizeMB:  10,
			MaxAgeDays: 1,
			MaxBackups: 1,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Info("hello")
}
