// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"divimport/internal/config"
	"divimport/internal/platform"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timeouts short enough for polling loops under test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "divi")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Daemon.RequestTimeout = 2
	cfg.Daemon.StartTimeout = 2
	cfg.Daemon.ReadyPollInterval = 1
	cfg.Recovery.SyncPollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create state directories: %v", err)
	}
	return &cfg
}

// WithRPCHost overrides the daemon RPC host.
func WithRPCHost(host string) ConfigOption {
	return func(c *config.Config) {
		c.Daemon.RPCHost = host
	}
}

// WithNtfyTopic enables ntfy notifications against the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(c *config.Config) {
		c.Notifications.NtfyTopic = topic
	}
}

// WriteDiviConf writes a divi.conf with RPC credentials into the config's
// data directory.
func WriteDiviConf(t testing.TB, cfg *config.Config, user, password string, port int) {
	t.Helper()
	conf := fmt.Sprintf("rpcuser=%s\nrpcpassword=%s\nrpcport=%d\n", user, password, port)
	if err := os.WriteFile(platform.ConfPath(cfg.Paths.DataDir), []byte(conf), 0o600); err != nil {
		t.Fatalf("write divi.conf: %v", err)
	}
}
