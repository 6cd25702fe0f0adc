package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "diarscribe", "config.toml"), nil
}

// Load builds the configuration.
// Priority: CLI flags > environment variables > .env file > config file > defaults.
// A missing config file is not an error.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing); existing env vars win over it
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	configPath := overrides.ConfigPath
	if configPath == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	cfg := DefaultConfig()
	if err := decodeFile(configPath, cfg); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.applyOverrides(overrides)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %s in %s", undecoded[0], path)
	}
	return nil
}

// applyOverrides copies non-empty CLI values over cfg.
func (c *Config) applyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Python != "" {
		c.Worker.Python = o.Python
	}
	if o.ScriptDir != "" {
		c.Worker.ScriptDir = o.ScriptDir
	}
	if o.OutputDir != "" {
		c.Output.Dir = o.OutputDir
	}
	if o.MetricsTextfile != "" {
		c.Metrics.Textfile = o.MetricsTextfile
	}
	if o.GraceInterval > 0 {
		c.Orchestrator.GraceInterval = o.GraceInterval
	}
}
