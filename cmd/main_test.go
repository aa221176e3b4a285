package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashboard_sync/internal/service"

	"github.com/spf13/viper"
)

func TestServiceConfig_DefaultsMatchService(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	cfg, err := serviceConfig()
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	want := service.DefaultConfig()
	if cfg.Poll != want.Poll {
		t.Errorf("poll = %+v, want %+v", cfg.Poll, want.Poll)
	}
	if cfg.GC != want.GC {
		t.Errorf("gc = %+v, want %+v", cfg.GC, want.GC)
	}
	if cfg.QueueOpTimeout != want.QueueOpTimeout {
		t.Errorf("queue timeout = %v, want %v", cfg.QueueOpTimeout, want.QueueOpTimeout)
	}
	if cfg.Placement.BaseOffset != want.Placement.BaseOffset || cfg.Placement.ItemsPerRow != want.Placement.ItemsPerRow {
		t.Errorf("placement = %+v, want %+v", cfg.Placement, want.Placement)
	}
}

func TestServiceConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("DASHSYNC_POLL_INTERVAL", "15s")
	t.Setenv("DASHSYNC_AUTH_SIGNING_KEY", "k")
	_ = loadConfig() // no configs/ dir next to the test binary

	cfg, err := serviceConfig()
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if cfg.Poll.Interval != 15*time.Second {
		t.Errorf("interval = %v, want 15s", cfg.Poll.Interval)
	}
	if cfg.Auth.SigningKey != "k" {
		t.Errorf("signing key = %q", cfg.Auth.SigningKey)
	}
}

func TestServiceConfig_TemplatesFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	path := filepath.Join(t.TempDir(), "templates.yml")
	if err := os.WriteFile(path, []byte("classes:\n  AKM: 1.25\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	viper.Set("placement.templates_file", path)

	cfg, err := serviceConfig()
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if got := cfg.Placement.YOffset("AKM"); got != 1.25 {
		t.Errorf("AKM offset = %v, want 1.25", got)
	}

	viper.Set("placement.templates_file", filepath.Join(t.TempDir(), "missing.yml"))
	if _, err := serviceConfig(); err == nil {
		t.Fatal("expected error for missing templates file")
	}
}
