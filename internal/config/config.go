// Package config handles configuration loading and management for sowgen.
// It supports XDG config paths, project-level overrides, environment
// variables, and hot reload of the user config file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for sowgen.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Rates     RatesConfig     `mapstructure:"rates"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Server    ServerConfig    `mapstructure:"server"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// RetryConfig holds agent invocation retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// RatesConfig holds trade day-rate settings.
type RatesConfig struct {
	// File is an optional YAML rates file merged over the built-in rates.
	File string `mapstructure:"file"`
}

// JobsConfig holds job manager settings.
type JobsConfig struct {
	// DBPath is the SQLite job store location. Empty selects the in-memory
	// store.
	DBPath string `mapstructure:"db_path"`
	// Timeout bounds one generation pipeline run.
	Timeout time.Duration `mapstructure:"timeout"`
	// BaseEstimate is the fixed part of the completion estimate.
	BaseEstimate time.Duration `mapstructure:"base_estimate"`
	// PerSpecialist is added to the estimate per specialist agent.
	PerSpecialist time.Duration `mapstructure:"per_specialist"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, SOWGEN_*)
// 2. Project config (.sowgen.yaml in current directory or parent)
// 3. User config (~/.config/sowgen/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SOWGEN")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Watch reloads the config file at path whenever it changes and hands the
// fresh Config to onChange. Reload failures are logged and skipped; the
// previous config stays in effect.
func Watch(path string, onChange func(*Config)) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Printf("[config] reload after %s: %v", e.Op, err)
			return
		}
		cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
		log.Printf("[config] reloaded %s", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.backoff", cfg.Retry.Backoff.String())
	v.Set("rates.file", cfg.Rates.File)
	v.Set("jobs.db_path", cfg.Jobs.DBPath)
	v.Set("jobs.timeout", cfg.Jobs.Timeout.String())
	v.Set("jobs.base_estimate", cfg.Jobs.BaseEstimate.String())
	v.Set("jobs.per_specialist", cfg.Jobs.PerSpecialist.String())
	v.Set("server.addr", cfg.Server.Addr)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "2s")

	v.SetDefault("rates.file", "")

	v.SetDefault("jobs.db_path", "")
	v.SetDefault("jobs.timeout", "10m")
	v.SetDefault("jobs.base_estimate", "90s")
	v.SetDefault("jobs.per_specialist", "20s")

	v.SetDefault("server.addr", ":8080")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     2 * time.Second,
		},
		Jobs: JobsConfig{
			Timeout:       10 * time.Minute,
			BaseEstimate:  90 * time.Second,
			PerSpecialist: 20 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// getUserConfigDir returns the XDG config directory for sowgen.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sowgen")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "sowgen")
	}
	return filepath.Join(home, ".config", "sowgen")
}

// findProjectConfig searches for .sowgen.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".sowgen.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
