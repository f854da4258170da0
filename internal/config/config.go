package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "/etc/processguard/config.json"

// Load loads configuration from the default or PROCESSGUARD_CONFIG path,
// expanding ${VAR}/${VAR:-default} references against the environment,
// applying defaults, overriding from environment variables, and
// validating the result. Priority: env vars > file > defaults.
func Load() (*Config, error) {
	path := os.Getenv("PROCESSGUARD_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from an explicit path. Missing files are
// not an error: the daemon falls back to defaults plus env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "no config file at %s, using defaults and environment overrides\n", path)
	} else {
		expanded := ExpandEnv(string(content))
		if err := decode(path, []byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ParseFile reads and decodes a config file without enforcing
// Validate(), applying only SetDefaults(). It exists for the
// check-config command, which needs ValidateComprehensive's full
// error/warning/suggestion report even for a file LoadFrom would
// otherwise reject outright.
func ParseFile(path string) (*Config, error) {
	cfg := &Config{}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "no config file at %s, using defaults and environment overrides\n", path)
	} else {
		expanded := ExpandEnv(string(content))
		if err := decode(path, []byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// decode picks JSON or YAML by file extension, defaulting to JSON —
// the config path the spec names is a .json file, but an operator may
// point PROCESSGUARD_CONFIG at a .yaml/.yml sibling and get the same
// schema via the teacher's yaml.v3 dependency.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// applyEnvOverrides applies PROCESSGUARD_<KEY> overrides to global settings.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROCESSGUARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PROCESSGUARD_LOG_BASE_DIR"); v != "" {
		cfg.LogBaseDir = v
	}
	if v := os.Getenv("PROCESSGUARD_MONITOR_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MonitorInterval = n
		}
	}
	if v := os.Getenv("PROCESSGUARD_METRICS_ENABLED"); v != "" {
		cfg.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("PROCESSGUARD_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MetricsPort = n
		}
	}
	if v := os.Getenv("PROCESSGUARD_LOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LogRetentionDays = n
		}
	}
}
