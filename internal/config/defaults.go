package config

const (
	defaultDataDir                = "~/.local/share/satchel"
	defaultLogDir                 = "~/.local/share/satchel/logs"
	defaultDeliveryRequestTimeout = 30
	defaultDeliveryMaxAttempts    = 3
	defaultSyncInterval           = 30
	defaultProbeInterval          = 15
	defaultProbeTimeout           = 5
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Delivery: Delivery{
			RequestTimeout: defaultDeliveryRequestTimeout,
			MaxAttempts:    defaultDeliveryMaxAttempts,
		},
		Sync: Sync{
			Interval: defaultSyncInterval,
		},
		Connectivity: Connectivity{
			ProbeInterval: defaultProbeInterval,
			ProbeTimeout:  defaultProbeTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queued:         false,
			Delivered:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
