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
	if err := c.validateAria2(); err != nil {
		return err
	}
	if err := c.validateScanners(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ExtractDir) == "" {
		return errors.New("paths.extract_dir must be set")
	}
	if strings.TrimSpace(c.Paths.EndedDir) == "" {
		return errors.New("paths.ended_dir must be set")
	}
	if c.Paths.ExtractDir == c.Paths.EndedDir {
		return errors.New("paths.extract_dir and paths.ended_dir must differ")
	}
	return nil
}

func (c *Config) validateAria2() error {
	if c.Aria2.Port <= 0 || c.Aria2.Port > 65535 {
		return fmt.Errorf("aria2.port must be between 1 and 65535, got %d", c.Aria2.Port)
	}
	return ensurePositiveMap(map[string]int{
		"aria2.request_timeout":    c.Aria2.RequestTimeout,
		"aria2.reconnect_interval": c.Aria2.ReconnectInterval,
	})
}

func (c *Config) validateScanners() error {
	if err := validateScanner("sonarr", c.Sonarr); err != nil {
		return err
	}
	return validateScanner("radarr", c.Radarr)
}

func validateScanner(section string, s Scanner) error {
	url := strings.TrimSpace(s.URL)
	key := strings.TrimSpace(s.APIKey)
	if url != "" && key == "" {
		return fmt.Errorf("%s.api_key must be set when %s.url is configured", section, section)
	}
	if url == "" && key != "" {
		return fmt.Errorf("%s.url must be set when %s.api_key is configured", section, section)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("%s.request_timeout must be positive", section)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"extraction.timeout":      c.Extraction.Timeout,
		"workflow.event_buffer":   c.Workflow.EventBuffer,
		"workflow.shutdown_grace": c.Workflow.ShutdownGrace,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
