package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is the default state directory name under the user's home.
const Dir = ".gnomes"

// Paths holds resolved gnomes file locations.
type Paths struct {
	Home      string // ~/.gnomes or GNOMES_HOME
	Config    string // config.yaml (or config.toml when only that exists) or GNOMES_CONFIG
	JournalDB string // journal.db or GNOMES_JOURNAL_DB
	DebugLog  string // GNOMES_DEBUG_LOG; empty when unset
}

// ResolvePaths returns all gnomes paths, respecting env overrides:
//   - GNOMES_HOME: base directory (default: ~/.gnomes)
//   - GNOMES_CONFIG: config file (default: $GNOMES_HOME/config.yaml)
//   - GNOMES_JOURNAL_DB: journal database (default: $GNOMES_HOME/journal.db)
//   - GNOMES_DEBUG_LOG: raw line mirror (default: none)
func ResolvePaths() (*Paths, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}
	return &Paths{
		Home:      home,
		Config:    resolveConfigPath(home),
		JournalDB: resolvePathWithEnv("GNOMES_JOURNAL_DB", home, "journal.db"),
		DebugLog:  os.Getenv("GNOMES_DEBUG_LOG"),
	}, nil
}

func resolveHome() (string, error) {
	if v := os.Getenv("GNOMES_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, Dir), nil
}

func resolveConfigPath(home string) string {
	if v := os.Getenv("GNOMES_CONFIG"); v != "" {
		return v
	}
	yamlPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	tomlPath := filepath.Join(home, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	return yamlPath
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
