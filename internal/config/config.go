package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the crusher configuration. Zero values are filled in with
// platform defaults by Load.
type Config struct {
	// ChatDBPath is the message store to read. Defaults to the standard
	// chat.db location.
	ChatDBPath string `yaml:"chat_db_path,omitempty"`
	// AttachmentsDir is the root attachment files are served from.
	AttachmentsDir string `yaml:"attachments_dir,omitempty"`
	// AddressBookDir is the AddressBook Sources directory for contact
	// name resolution.
	AddressBookDir string `yaml:"addressbook_dir,omitempty"`

	Port      int    `yaml:"port,omitempty"`
	GridWidth int    `yaml:"grid_width,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`

	// WatchPeople reloads the override directory when people.tsv changes
	// on disk.
	WatchPeople bool `yaml:"watch_people,omitempty"`
}

const (
	defaultPort      = 5050
	defaultGridWidth = 196
)

// GetConfigDir returns the config directory, honoring an explicit override
// (useful for tests and portable installs).
func GetConfigDir() (string, error) {
	if override := os.Getenv("CRUSHER_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "crusher"), nil
}

// GetDataDir returns the platform-specific data directory, where people.tsv
// lives.
func GetDataDir() (string, error) {
	if override := os.Getenv("CRUSHER_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Crusher"), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "crusher"), nil
	}
	return filepath.Join(home, ".local", "share", "crusher"), nil
}

// PeoplePath returns the override directory file location.
func PeoplePath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "people.tsv"), nil
}

// Load reads config.yaml from the config directory. A missing file yields a
// default config.
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the config directory.
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.ChatDBPath == "" {
		c.ChatDBPath = filepath.Join(home, "Library", "Messages", "chat.db")
	}
	if c.AttachmentsDir == "" {
		c.AttachmentsDir = filepath.Join(home, "Library", "Messages", "Attachments")
	}
	if c.AddressBookDir == "" {
		c.AddressBookDir = filepath.Join(home, "Library", "Application Support", "AddressBook", "Sources")
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.GridWidth == 0 {
		c.GridWidth = defaultGridWidth
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return nil
}
