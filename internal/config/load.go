package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config.yaml and from
// MULTISERVE_-prefixed environment variables, with env taking precedence.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MULTISERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.scratch_dir", "")
	v.SetDefault("jobs.artifact_ttl", "10m")
	v.SetDefault("jobs.sweep_interval", "1m")

	v.SetDefault("download.deadline", "10m")
	v.SetDefault("download.max_output_mb", 100)
	v.SetDefault("download.blocked_hosts", []string{})
	v.SetDefault("download.executable", "")

	v.SetDefault("speech.deadline", "2m")
	v.SetDefault("speech.max_output_mb", 20)

	v.SetDefault("qr.deadline", "15s")
	v.SetDefault("qr.max_output_mb", 5)

	v.SetDefault("background.deadline", "3m")
	v.SetDefault("background.max_input_mb", 10)
	v.SetDefault("background.max_output_mb", 20)
	v.SetDefault("background.executable", "rembg")
}
