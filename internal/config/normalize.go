package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDelivery()
	c.normalizeSync()
	c.normalizeConnectivity()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDelivery() {
	if c.Delivery.Endpoint == "" {
		if value, ok := os.LookupEnv("SATCHEL_ENDPOINT"); ok {
			c.Delivery.Endpoint = value
		}
	}
	c.Delivery.Endpoint = strings.TrimSpace(c.Delivery.Endpoint)
	if c.Delivery.RequestTimeout <= 0 {
		c.Delivery.RequestTimeout = defaultDeliveryRequestTimeout
	}
	if c.Delivery.MaxAttempts <= 0 {
		c.Delivery.MaxAttempts = defaultDeliveryMaxAttempts
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = defaultSyncInterval
	}
}

func (c *Config) normalizeConnectivity() {
	c.Connectivity.ProbeURL = strings.TrimSpace(c.Connectivity.ProbeURL)
	if c.Connectivity.ProbeURL == "" {
		// Probing the delivery endpoint itself answers the only question
		// that matters: can submissions reach the remote right now.
		c.Connectivity.ProbeURL = c.Delivery.Endpoint
	}
	if c.Connectivity.ProbeInterval <= 0 {
		c.Connectivity.ProbeInterval = defaultProbeInterval
	}
	if c.Connectivity.ProbeTimeout <= 0 {
		c.Connectivity.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
