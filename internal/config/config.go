package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Video    VideoConfig    `mapstructure:"video"    validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// PipelineConfig tunes the background job pipeline: worker pool sizing,
// the centralized retry policy applied to every job, and the lifetime of
// intermediate state handed between stages.
type PipelineConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the buffer size of the in-memory job queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// MaxRetries is the retry ceiling for transient job failures.
	// A job is attempted at most MaxRetries+1 times.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryBaseDelay is the base delay for exponential backoff between
	// retry attempts.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"required"`

	// StateTTL bounds how long intermediate pipeline state is retained in
	// the shared state store before it expires.
	StateTTL time.Duration `mapstructure:"state_ttl" validate:"required"`

	// StuckJobAge defines how long a job can sit in the processing state
	// before the monitor resets it.
	StuckJobAge time.Duration `mapstructure:"stuck_job_age" validate:"required"`
}

// LLMConfig contains settings for the prompt-generation provider.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// PromptTemplatePath optionally overrides the embedded prompt template.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}

// VideoConfig contains settings for the video-generation provider.
type VideoConfig struct {
	// Endpoint is the base URL of the video-generation API.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Mock false,omitempty,url"`

	// APIKey authenticates requests to the video-generation API.
	APIKey string `mapstructure:"api_key" validate:"required_if=Mock false"`

	// Mock selects the stand-in provider that fabricates artifact URLs
	// instead of calling out. Used until the real provider is wired in
	// production.
	Mock bool `mapstructure:"mock"`
}
