package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateRecovery(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.RPCHost == "" {
		return errors.New("daemon.rpc_host must be set")
	}
	if c.Daemon.RPCPort <= 0 || c.Daemon.RPCPort > 65535 {
		return fmt.Errorf("daemon.rpc_port must be in 1..65535, got %d", c.Daemon.RPCPort)
	}
	if c.Daemon.RequestTimeout <= 0 {
		return errors.New("daemon.request_timeout must be positive")
	}
	if c.Daemon.StartTimeout <= 0 {
		return errors.New("daemon.start_timeout must be positive")
	}
	if c.Daemon.ReadyPollInterval <= 0 {
		return errors.New("daemon.ready_poll_interval must be positive")
	}
	if c.Daemon.MaxStartAttempts <= 0 {
		return errors.New("daemon.max_start_attempts must be positive")
	}
	return nil
}

func (c *Config) validateRecovery() error {
	if c.Recovery.SyncPollInterval <= 0 {
		return errors.New("recovery.sync_poll_interval must be positive")
	}
	if c.Recovery.SyncCompleteThreshold <= 0 || c.Recovery.SyncCompleteThreshold > 1 {
		return errors.New("recovery.sync_complete_threshold must be in (0, 1]")
	}
	if c.Recovery.StaleAfterMinutes <= 0 {
		return errors.New("recovery.stale_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json", "":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
