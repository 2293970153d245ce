package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify sowgen configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/sowgen/config.yaml
Project-specific overrides can be placed in .sowgen.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s (source: %s)\n", config.MaskAPIKey(cfg.Anthropic.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.backoff: %s\n", cfg.Retry.Backoff)
	fmt.Printf("rates.file: %s\n", cfg.Rates.File)
	fmt.Printf("jobs.db_path: %s\n", cfg.Jobs.DBPath)
	fmt.Printf("jobs.timeout: %s\n", cfg.Jobs.Timeout)
	fmt.Printf("jobs.base_estimate: %s\n", cfg.Jobs.BaseEstimate)
	fmt.Printf("jobs.per_specialist: %s\n", cfg.Jobs.PerSpecialist)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "anthropic.api_key":
		fmt.Println(config.MaskAPIKey(cfg.Anthropic.APIKey))
	case "anthropic.model":
		fmt.Println(cfg.Anthropic.Model)
	case "anthropic.use_bedrock":
		fmt.Println(cfg.Anthropic.UseBedrock)
	case "anthropic.aws_region":
		fmt.Println(cfg.Anthropic.AWSRegion)
	case "anthropic.aws_profile":
		fmt.Println(cfg.Anthropic.AWSProfile)
	case "retry.max_attempts":
		fmt.Println(cfg.Retry.MaxAttempts)
	case "retry.backoff":
		fmt.Println(cfg.Retry.Backoff)
	case "rates.file":
		fmt.Println(cfg.Rates.File)
	case "jobs.db_path":
		fmt.Println(cfg.Jobs.DBPath)
	case "jobs.timeout":
		fmt.Println(cfg.Jobs.Timeout)
	case "jobs.base_estimate":
		fmt.Println(cfg.Jobs.BaseEstimate)
	case "jobs.per_specialist":
		fmt.Println(cfg.Jobs.PerSpecialist)
	case "server.addr":
		fmt.Println(cfg.Server.Addr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

// setConfigKey sets a configuration value and saves the config file.
func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid API key: %v\n", err)
			os.Exit(1)
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock, err = strconv.ParseBool(value)
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "retry.max_attempts":
		cfg.Retry.MaxAttempts, err = strconv.Atoi(value)
	case "retry.backoff":
		cfg.Retry.Backoff, err = time.ParseDuration(value)
	case "rates.file":
		cfg.Rates.File = value
	case "jobs.db_path":
		cfg.Jobs.DBPath = value
	case "jobs.timeout":
		cfg.Jobs.Timeout, err = time.ParseDuration(value)
	case "jobs.base_estimate":
		cfg.Jobs.BaseEstimate, err = time.ParseDuration(value)
	case "jobs.per_specialist":
		cfg.Jobs.PerSpecialist, err = time.ParseDuration(value)
	case "server.addr":
		cfg.Server.Addr = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s\n", key)
}
