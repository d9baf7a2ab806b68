package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drake/ferry/remote"
)

// Config holds the settings read from ferry.yaml.
type Config struct {
	Timeout          time.Duration      `yaml:"timeout"`
	LocalDir         string             `yaml:"local_dir"`
	Log              LogConfig          `yaml:"log"`
	ListingCache     int                `yaml:"listing_cache"`
	ReplaceOnConnect bool               `yaml:"replace_on_connect"`
	KnownHosts       string             `yaml:"known_hosts"`
	Profiles         map[string]Profile `yaml:"profiles"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Profile is a named set of connection credentials. Secret may reference
// environment variables as $VAR or ${VAR}.
type Profile struct {
	Host   string `yaml:"host"`
	User   string `yaml:"user"`
	Secret string `yaml:"secret"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		LocalDir:     ".",
		Log:          LogConfig{Level: "info", Format: "text"},
		ListingCache: 64,
		Profiles:     map[string]Profile{},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s: timeout must be positive", path)
	}
	if cfg.ListingCache < 0 {
		return nil, fmt.Errorf("%s: listing_cache must not be negative", path)
	}
	return cfg, nil
}

// LoadDefault reads File(), falling back to Default() when it does not exist.
func LoadDefault() (*Config, error) {
	cfg, err := Load(File())
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Profile resolves a named profile into credentials.
func (c *Config) Profile(name string) (remote.Credentials, bool) {
	p, ok := c.Profiles[name]
	if !ok {
		return remote.Credentials{}, false
	}
	return remote.Credentials{
		Host:   p.Host,
		User:   os.ExpandEnv(p.User),
		Secret: os.ExpandEnv(p.Secret),
	}, true
}

// Dir returns the ferry configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "ferry")
}

// File returns the path to ferry.yaml
func File() string {
	return filepath.Join(Dir(), "ferry.yaml")
}

// InitFile returns the path to init.lua
func InitFile() string {
	return filepath.Join(Dir(), "init.lua")
}
