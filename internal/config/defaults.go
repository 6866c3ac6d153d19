package config

const (
	defaultStateDir              = "~/.local/share/divimport"
	defaultLogDir                = "~/.local/share/divimport/logs"
	defaultAPIBind               = "127.0.0.1:0"
	defaultRPCHost               = "127.0.0.1"
	defaultRPCPort               = 51473
	defaultRPCRequestTimeout     = 10
	defaultDaemonStartTimeout    = 120
	defaultReadyPollInterval     = 2
	defaultMaxStartAttempts      = 8
	defaultSyncPollInterval      = 5
	defaultSyncCompleteThreshold = 0.9995
	defaultStaleAfterMinutes     = 720
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Daemon: Daemon{
			RPCHost:           defaultRPCHost,
			RPCPort:           defaultRPCPort,
			RequestTimeout:    defaultRPCRequestTimeout,
			StartTimeout:      defaultDaemonStartTimeout,
			ReadyPollInterval: defaultReadyPollInterval,
			MaxStartAttempts:  defaultMaxStartAttempts,
		},
		Recovery: Recovery{
			SyncPollInterval:      defaultSyncPollInterval,
			SyncCompleteThreshold: defaultSyncCompleteThreshold,
			StaleAfterMinutes:     defaultStaleAfterMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
