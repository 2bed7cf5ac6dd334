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
	c.normalizeAria2()
	c.normalizeScanners()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.ExtractDir, err = expandPath(c.Paths.ExtractDir); err != nil {
		return fmt.Errorf("paths.extract_dir: %w", err)
	}
	if c.Paths.EndedDir, err = expandPath(c.Paths.EndedDir); err != nil {
		return fmt.Errorf("paths.ended_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAria2() {
	c.Aria2.Host = strings.TrimSpace(c.Aria2.Host)
	if c.Aria2.Host == "" {
		c.Aria2.Host = defaultAria2Host
	}
	if c.Aria2.Port == 0 {
		c.Aria2.Port = defaultAria2Port
	}
	if c.Aria2.Secret == "" {
		if value, ok := os.LookupEnv("ARIA2_SECRET"); ok {
			c.Aria2.Secret = value
		}
	}
	if c.Aria2.RequestTimeout <= 0 {
		c.Aria2.RequestTimeout = defaultAria2Timeout
	}
	if c.Aria2.ReconnectInterval <= 0 {
		c.Aria2.ReconnectInterval = defaultReconnectInterval
	}
}

func (c *Config) normalizeScanners() {
	normalizeScanner(&c.Sonarr, "SONARR_API_KEY")
	normalizeScanner(&c.Radarr, "RADARR_API_KEY")
}

func normalizeScanner(s *Scanner, envKey string) {
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	s.APIKey = strings.TrimSpace(s.APIKey)
	if s.APIKey == "" {
		if value, ok := os.LookupEnv(envKey); ok {
			s.APIKey = strings.TrimSpace(value)
		}
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = defaultScannerTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.EventBuffer <= 0 {
		c.Workflow.EventBuffer = defaultEventBuffer
	}
	if c.Workflow.ShutdownGrace <= 0 {
		c.Workflow.ShutdownGrace = defaultShutdownGrace
	}
	if c.Extraction.Timeout <= 0 {
		c.Extraction.Timeout = defaultExtractionTimeout
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
