package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// ConfigPathEnvVar names the YAML file to load.
	ConfigPathEnvVar = "HOSTWATCH_CONFIG"
	envPrefix        = "HOSTWATCH_"
)

// DefaultConfigPaths are searched when HOSTWATCH_CONFIG is unset.
var DefaultConfigPaths = []string{
	"hostwatch.yaml",
	"hostwatch.yml",
}

// LoadWithKoanf loads defaults, then the first config file found, then the
// environment. HOSTWATCH_POLL__LOG_INTERVAL=3s sets poll.log_interval.
func LoadWithKoanf() (*Config, error) {
	return Load(findConfigFile())
}

// Load is LoadWithKoanf with an explicit file path. An empty path skips the
// file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps HOSTWATCH_BACKEND__FETCH_TIMEOUT to
// backend.fetch_timeout. Single underscores stay inside key names.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
