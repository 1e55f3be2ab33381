package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config.yaml next to the binary or in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment variables use the REELFORGE_ prefix with underscores,
	// e.g. REELFORGE_DATABASE_URL, REELFORGE_LLM_GEMINI_API_KEY.
	v.SetEnvPrefix("REELFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for all tunable settings.
// Retry and TTL values are deliberately configuration, not contracts.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("pipeline.worker_count", 2)
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.retry_base_delay", 2*time.Second)
	v.SetDefault("pipeline.state_ttl", 24*time.Hour)
	v.SetDefault("pipeline.stuck_job_age", 30*time.Minute)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")

	v.SetDefault("video.mock", true)
}
