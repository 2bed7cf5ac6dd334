package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	ExtractDir  string `toml:"extract_dir"`
	EndedDir    string `toml:"ended_dir"`
	LogDir      string `toml:"log_dir"`
}

// Aria2 contains connection settings for the aria2 RPC endpoint.
type Aria2 struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	Secret            string `toml:"secret"`
	RequestTimeout    int    `toml:"request_timeout"`
	ReconnectInterval int    `toml:"reconnect_interval"`
}

// Scanner contains configuration for one downstream library-scan service.
// Sonarr and Radarr share the same shape.
type Scanner struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Enabled reports whether the integration is configured at all. A missing
// URL or key disables the integration entirely; it is not an error.
func (s Scanner) Enabled() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// Extraction contains settings for the external archive-extraction tools.
type Extraction struct {
	Timeout int `toml:"timeout"`
}

// Workflow contains daemon timing and sizing knobs.
type Workflow struct {
	EventBuffer   int `toml:"event_buffer"`
	ShutdownGrace int `toml:"shutdown_grace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sweeper.
//
// Sections by subsystem:
//   - Paths: download, extraction staging, and final destination directories
//   - Aria2: event-source RPC host/port/secret
//   - Sonarr/Radarr: downstream library-scan integrations
//   - Extraction: external tool timeout
//   - Workflow: daemon buffering and shutdown timing
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Aria2      Aria2      `toml:"aria2"`
	Sonarr     Scanner    `toml:"sonarr"`
	Radarr     Scanner    `toml:"radarr"`
	Extraction Extraction `toml:"extraction"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sweeper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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
		_, err = os.Stat(expanded)
		if err != nil {
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

	projectPath, err := filepath.Abs("sweeper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// EndedDir is created on a best-effort basis so the daemon can start when
// the destination storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ExtractDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.EndedDir) != "" {
		_ = os.MkdirAll(c.Paths.EndedDir, 0o755)
	}
	return nil
}

// UnrarBinary returns the executable used for RAR archives.
func (c *Config) UnrarBinary() string {
	return "unrar"
}

// SevenZipBinary returns the executable used for 7z archives.
func (c *Config) SevenZipBinary() string {
	return "7z"
}

// UnzipBinary returns the executable used for ZIP archives.
func (c *Config) UnzipBinary() string {
	return "unzip"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
