package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("service.base_url must be an http(s) URL, got %q", c.Service.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("service.base_url must include a host, got %q", c.Service.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"service.request_timeout":       c.Service.RequestTimeout,
		"service.upload_timeout":        c.Service.UploadTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePolling() error {
	if c.Polling.IntervalMS <= 0 {
		return errors.New("polling.interval_ms must be positive")
	}
	if c.Polling.MaxAttempts < 0 {
		return errors.New("polling.max_attempts must be >= 0 (0 disables the cap)")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if c.Defaults.DedupeThreshold < 0 || c.Defaults.DedupeThreshold > 1 {
		return errors.New("defaults.dedupe_threshold must be between 0 and 1 (0 uses the server default)")
	}
	if c.Defaults.FontSize < 0 {
		return errors.New("defaults.font_size must be positive")
	}
	if c.Defaults.MusicVolume < 0 || c.Defaults.MusicVolume > 1 {
		return errors.New("defaults.music_volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
