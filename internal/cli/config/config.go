// Package config provides configuration loading for the defensio command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdziat/defensio-go"
)

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{
	".defensio.yaml",
	".defensio.yml",
}

// Config represents the command configuration.
type Config struct {
	APIKey    string          `yaml:"api_key"`
	Host      string          `yaml:"host"`
	Format    string          `yaml:"format"`
	ClientID  string          `yaml:"client_id"`
	Timeout   time.Duration   `yaml:"timeout"`
	Debug     bool            `yaml:"debug"`
	Callbacks CallbacksConfig `yaml:"callbacks"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// CallbacksConfig configures the callback receiver.
type CallbacksConfig struct {
	Addr     string `yaml:"addr"`
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Format: string(defensio.DefaultFormat),
		Callbacks: CallbacksConfig{
			Addr:     "127.0.0.1:8080",
			Path:     "/defensio/callback",
			MaxBytes: defensio.DefaultCallbackMaxBytes,
		},
	}
}

// Load reads configuration from path, or from the nearest configuration file
// above the working directory when path is empty, then applies environment
// variable overrides. A missing file is an error only when path is explicit.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if dir, err := os.Getwd(); err == nil {
			path = findConfigFile(dir)
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.Path = path
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	expandEnvVars(cfg)

	return cfg, nil
}

// findConfigFile searches dir and its parents for a configuration file.
func findConfigFile(dir string) string {
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(defensio.EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(defensio.EnvHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(defensio.EnvFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(defensio.EnvClientID); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv(defensio.EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", defensio.EnvDebug, err)
		}
		cfg.Debug = debug
	}
	return nil
}

func expandEnvVars(cfg *Config) {
	cfg.APIKey = expandEnvVar(cfg.APIKey)
	cfg.Host = expandEnvVar(cfg.Host)
	cfg.ClientID = expandEnvVar(cfg.ClientID)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVar expands ${VAR} and $VAR references. Unset variables expand
// to the empty string.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		m := envRef.FindStringSubmatch(match)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return os.Getenv(name)
	})
}
