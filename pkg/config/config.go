// Package config loads gnomes settings from $GNOMES_HOME/config.yaml (or
// config.toml), applies environment overrides and watches the file for
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gnomes/pkg/bridge"
)

// Config mirrors the config file.
type Config struct {
	Adapter  AdapterConfig `yaml:"adapter" toml:"adapter"`
	Robot    RobotConfig   `yaml:"robot" toml:"robot"`
	Journal  JournalConfig `yaml:"journal" toml:"journal"`
	DebugLog string        `yaml:"debug_log,omitempty" toml:"debug_log,omitempty"`
}

// AdapterConfig is the identity reported to UCI GUIs.
type AdapterConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Author string `yaml:"author" toml:"author"`
}

// RobotConfig describes the move service.
type RobotConfig struct {
	URL             string   `yaml:"url" toml:"url"`
	Timeout         Duration `yaml:"timeout" toml:"timeout"`
	BoundMultiplier float64  `yaml:"bound_multiplier" toml:"bound_multiplier"`
	MaxRetries      int      `yaml:"max_retries" toml:"max_retries"`
}

// JournalConfig controls transcript recording.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Adapter: AdapterConfig{Name: "Gnomes", Author: "Gnomes"},
		Robot: RobotConfig{
			URL:             bridge.DefaultURL,
			Timeout:         Duration(5 * time.Second),
			BoundMultiplier: 2,
			MaxRetries:      3,
		},
	}
}

// Bridge converts the robot section to bridge settings.
func (c Config) Bridge() bridge.Config {
	return bridge.Config{
		URL:             c.Robot.URL,
		Timeout:         c.Robot.Timeout.Std(),
		BoundMultiplier: c.Robot.BoundMultiplier,
		MaxRetries:      c.Robot.MaxRetries,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Robot.URL) == "" {
		errs = append(errs, errors.New("robot.url is empty"))
	}
	if c.Robot.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("robot.timeout must be positive, got %s", c.Robot.Timeout))
	}
	if c.Robot.BoundMultiplier < 1 {
		errs = append(errs, fmt.Errorf("robot.bound_multiplier must be at least 1, got %g", c.Robot.BoundMultiplier))
	}
	if c.Robot.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("robot.max_retries must not be negative, got %d", c.Robot.MaxRetries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Load reads path over the defaults. A missing file yields the defaults.
// The format is chosen by extension: .yaml, .yml or .toml.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays GNOMES_ROBOT_URL, GNOMES_JOURNAL_DB and GNOMES_DEBUG_LOG.
// Setting GNOMES_JOURNAL_DB also enables the journal.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("GNOMES_ROBOT_URL"); v != "" {
		c.Robot.URL = v
	}
	if v := os.Getenv("GNOMES_JOURNAL_DB"); v != "" {
		c.Journal.Path = v
		c.Journal.Enabled = true
	}
	if v := os.Getenv("GNOMES_DEBUG_LOG"); v != "" {
		c.DebugLog = v
	}
	return c
}

// Marshal renders cfg in the format implied by path's extension.
func Marshal(cfg Config, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}
