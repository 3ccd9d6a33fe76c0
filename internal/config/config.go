// Package config handles deskshell configuration files and their location.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "DESKSHELL_CONFIG"

// EnvToken names the environment variable consulted when no update token is configured.
const EnvToken = "GITHUB_TOKEN"

// ErrNotFound is returned by Find when no config file exists in any standard location.
var ErrNotFound = errors.New("no config file found in standard locations")

// Config is the parsed configuration file.
type Config struct {
	App    AppConfig    `yaml:"app" toml:"app" json:"app"`
	Window WindowConfig `yaml:"window" toml:"window" json:"window"`
	Update UpdateConfig `yaml:"update" toml:"update" json:"update"`
}

// AppConfig describes the application.
type AppConfig struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	// Version overrides the version baked into the binary.
	Version string `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`
}

// WindowConfig describes the window and where its UI comes from.
type WindowConfig struct {
	Width     int    `yaml:"width" toml:"width" json:"width"`
	Height    int    `yaml:"height" toml:"height" json:"height"`
	MinWidth  int    `yaml:"min_width" toml:"min_width" json:"min_width"`
	MinHeight int    `yaml:"min_height" toml:"min_height" json:"min_height"`
	DevURL    string `yaml:"dev_url,omitempty" toml:"dev_url,omitempty" json:"dev_url,omitempty"`
	StaticDir string `yaml:"static_dir,omitempty" toml:"static_dir,omitempty" json:"static_dir,omitempty"`
	Listen    string `yaml:"listen" toml:"listen" json:"listen"`
}

// UpdateConfig describes where releases are published.
type UpdateConfig struct {
	Owner        string `yaml:"owner" toml:"owner" json:"owner"`
	Repo         string `yaml:"repo" toml:"repo" json:"repo"`
	BaseURL      string `yaml:"base_url,omitempty" toml:"base_url,omitempty" json:"base_url,omitempty"`
	Token        string `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
	CheckOnStart bool   `yaml:"check_on_start" toml:"check_on_start" json:"check_on_start"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		App: AppConfig{Name: "deskshell"},
		Window: WindowConfig{
			Width:     1024,
			Height:    768,
			MinWidth:  400,
			MinHeight: 300,
			Listen:    "127.0.0.1:0",
		},
		Update: UpdateConfig{
			Owner:   "adamancini",
			Repo:    "deskshell",
			BaseURL: "https://api.github.com",
		},
	}
}

// Find searches for a config file. An explicit path must exist; otherwise
// DESKSHELL_CONFIG and the standard locations are tried in order.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	dirs := []string{
		xdgDir(home),
		filepath.Join(home, ".deskshell"),
		home,
	}
	names := []string{
		"config.yaml", "config.yml", "config.toml", "config.json",
		".deskshell.yaml", ".deskshell.yml", ".deskshell.toml", ".deskshell.json",
	}

	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// DefaultPath is where a new config file is written: $XDG_CONFIG_HOME/deskshell/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(xdgDir(home), "config.yaml"), nil
}

func xdgDir(home string) string {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "deskshell")
}

// Load reads, parses and validates the config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyEnv()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve finds and loads the config, falling back to defaults when no file exists.
// It returns the path used, empty for defaults.
func Resolve(explicitPath string) (*Config, string, error) {
	path, err := Find(explicitPath)
	if errors.Is(err, ErrNotFound) {
		cfg := Defaults()
		cfg.applyEnv()
		return cfg, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (c *Config) applyEnv() {
	if c.Update.Token == "" {
		c.Update.Token = os.Getenv(EnvToken)
	}
}
