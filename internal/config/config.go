package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	LLM         LLMConfig         `mapstructure:"llm" validate:"required"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch" validate:"required"`
	Paths       PathsConfig       `mapstructure:"paths"`
	Translation TranslationConfig `mapstructure:"translation"`
	Images      ImagesConfig      `mapstructure:"images"`
}

// ServerConfig contains the read API and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig configures the optional job and outcome ledger. An empty
// URL disables it.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// LLMConfig contains the generation provider settings.
type LLMConfig struct {
	// Provider serves synchronous chat completions: mistral or gemini
	Provider string `mapstructure:"provider" validate:"required,oneof=mistral gemini"`

	MistralAPIKey  string `mapstructure:"mistral_api_key"`
	MistralModel   string `mapstructure:"mistral_model" validate:"required"`
	MistralBaseURL string `mapstructure:"mistral_base_url" validate:"omitempty,url"`

	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	GeminiModel    string `mapstructure:"gemini_model" validate:"required"`
	EmbeddingModel string `mapstructure:"embedding_model" validate:"required"`
	ImageModel     string `mapstructure:"image_model" validate:"required"`

	// MaxRetries bounds the retries of one provider call
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RequestTimeout bounds one provider HTTP call
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// DispatchConfig controls how work items are dispatched.
type DispatchConfig struct {
	// Batch enables the batch strategy for chat jobs
	Batch bool `mapstructure:"batch"`

	// Concurrency is the worker pool size
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`

	// Retries is the number of extra worker pool attempts per item
	Retries int `mapstructure:"retries" validate:"gte=0"`

	// RetryDelay is the pause between worker pool attempts
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`

	// PollIntervalSeconds is the wait between batch status queries, e.g. 5 or 0.5
	PollIntervalSeconds float64 `mapstructure:"poll_interval" validate:"gt=0"`

	// TimeoutMinutes bounds batch polling; 0 waits indefinitely
	TimeoutMinutes float64 `mapstructure:"timeout_minutes" validate:"gte=0"`

	// FallbackInterval paces synchronous fallback calls
	FallbackInterval time.Duration `mapstructure:"fallback_interval" validate:"gt=0"`

	// Overwrite regenerates items whose artifact exists
	Overwrite bool `mapstructure:"overwrite"`

	// Limit caps the number of input records; 0 means no limit
	Limit int `mapstructure:"limit" validate:"gte=0"`
}

// PollInterval returns the batch poll interval.
func (d DispatchConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSeconds * float64(time.Second))
}

// Timeout returns the batch polling deadline, zero when unbounded.
func (d DispatchConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMinutes * float64(time.Minute))
}

// PathsConfig locates inputs and outputs. Empty directories take the
// default of the job kind being run.
type PathsConfig struct {
	// Input is the CSV or title list recipes are generated from
	Input string `mapstructure:"input" validate:"required"`

	// SourceDir holds the artifacts derived jobs read
	SourceDir string `mapstructure:"source_dir"`

	// OutputDir receives the artifacts of the run
	OutputDir string `mapstructure:"output_dir"`

	// TemplateDir overrides the built-in prompt templates
	TemplateDir string `mapstructure:"template_dir"`

	// ImageDir is served by the read API under /images
	ImageDir string `mapstructure:"image_dir"`
}

// TranslationConfig configures translation runs.
type TranslationConfig struct {
	Languages []string `mapstructure:"languages"`
}

// ImagesConfig configures image runs.
type ImagesConfig struct {
	Format string `mapstructure:"format" validate:"oneof=jpg jpeg png"`
}
