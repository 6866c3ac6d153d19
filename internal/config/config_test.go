package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"divimport/internal/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Daemon.RPCPort != 51473 {
		t.Fatalf("unexpected default rpc port: %d", cfg.Daemon.RPCPort)
	}
	if cfg.Recovery.StaleAfterMinutes != 720 {
		t.Fatalf("unexpected default stale threshold: %d", cfg.Recovery.StaleAfterMinutes)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "~/divimport-state"

[daemon]
rpc_port = 18443

[recovery]
sync_poll_interval = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%s", exists, resolved)
	}
	if cfg.Daemon.RPCPort != 18443 {
		t.Fatalf("expected parsed rpc port, got %d", cfg.Daemon.RPCPort)
	}
	if strings.HasPrefix(cfg.Paths.StateDir, "~") {
		t.Fatalf("expected expanded state dir, got %s", cfg.Paths.StateDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}
	if cfg.Paths.StateDir != filepath.Join(home, "divimport-state") {
		t.Fatalf("unexpected state dir: %s", cfg.Paths.StateDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero rpc port", func(c *config.Config) { c.Daemon.RPCPort = 0 }},
		{"huge rpc port", func(c *config.Config) { c.Daemon.RPCPort = 70000 }},
		{"zero poll interval", func(c *config.Config) { c.Recovery.SyncPollInterval = 0 }},
		{"threshold above one", func(c *config.Config) { c.Recovery.SyncCompleteThreshold = 1.5 }},
		{"zero stale threshold", func(c *config.Config) { c.Recovery.StaleAfterMinutes = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"empty state dir", func(c *config.Config) { c.Paths.StateDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStatePathsDeriveFromStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = "/tmp/divimport-test"
	if cfg.SessionFilePath() != "/tmp/divimport-test/recovery_session.json" {
		t.Fatalf("unexpected session path: %s", cfg.SessionFilePath())
	}
	if cfg.JournalPath() != "/tmp/divimport-test/journal.db" {
		t.Fatalf("unexpected journal path: %s", cfg.JournalPath())
	}
	if cfg.LockFilePath() != "/tmp/divimport-test/divimport.lock" {
		t.Fatalf("unexpected lock path: %s", cfg.LockFilePath())
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should parse and validate: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}
