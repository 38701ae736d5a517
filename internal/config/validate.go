package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateConnectivity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if c.Delivery.Endpoint == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/satchel/config.toml"
		}
		return fmt.Errorf("delivery.endpoint is required. Set SATCHEL_ENDPOINT env var or edit %s (create with 'satchel config init')", defaultPath)
	}
	if err := validateHTTPURL(c.Delivery.Endpoint); err != nil {
		return fmt.Errorf("delivery.endpoint: %w", err)
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	if c.Connectivity.ProbeURL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Connectivity.ProbeURL); err != nil {
		return fmt.Errorf("connectivity.probe_url: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return errors.New("must include a host")
	}
	return nil
}
