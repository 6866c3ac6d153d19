package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// DataDir overrides the platform default Divi Core data directory.
	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// Daemon contains divid RPC and startup settings.
type Daemon struct {
	RPCHost string `toml:"rpc_host"`
	RPCPort int    `toml:"rpc_port"`
	// BinaryPath overrides binary discovery. The DIVI_DAEMON_PATH environment
	// variable supersedes both this setting and platform probing.
	BinaryPath        string `toml:"binary_path"`
	RequestTimeout    int    `toml:"request_timeout"`
	StartTimeout      int    `toml:"start_timeout"`
	ReadyPollInterval int    `toml:"ready_poll_interval"`
	MaxStartAttempts  int    `toml:"max_start_attempts"`
}

// DesktopApp contains Divi Desktop launch settings.
type DesktopApp struct {
	// Path overrides platform discovery of the desktop executable.
	Path string `toml:"path"`
}

// Recovery contains sync polling and resume policy settings.
type Recovery struct {
	SyncPollInterval int `toml:"sync_poll_interval"`
	// SyncCompleteThreshold is the verificationprogress fraction at which sync
	// is considered done. verificationprogress approaches 1.0 asymptotically.
	SyncCompleteThreshold float64 `toml:"sync_complete_threshold"`
	// StaleAfterMinutes bounds how old a persisted session may be before
	// resume-or-restart offers RESTART instead of RESUME.
	StaleAfterMinutes int `toml:"stale_after_minutes"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for divimport.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Daemon        Daemon        `toml:"daemon"`
	DesktopApp    DesktopApp    `toml:"desktop_app"`
	Recovery      Recovery      `toml:"recovery"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/divimport/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean result reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SessionFilePath returns the persisted recovery session location.
func (c *Config) SessionFilePath() string {
	return filepath.Join(c.Paths.StateDir, "recovery_session.json")
}

// JournalPath returns the transition journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockFilePath returns the single-instance lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "divimport.lock")
}

// LogFilePath returns the main log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "divimport.log")
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
