package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FORGE_DISPATCH_BATCH.
const EnvPrefix = "FORGE"

var defaults = map[string]any{
	"server.port":                8080,
	"server.log_level":           "info",
	"database.url":               "",
	"llm.provider":               "mistral",
	"llm.mistral_api_key":        "",
	"llm.mistral_model":          "mistral-small-latest",
	"llm.mistral_base_url":       "https://api.mistral.ai",
	"llm.gemini_api_key":         "",
	"llm.gemini_model":           "gemini-2.0-flash",
	"llm.embedding_model":        "text-embedding-004",
	"llm.image_model":            "imagen-3.0-generate-002",
	"llm.max_retries":            3,
	"llm.request_timeout":        2 * time.Minute,
	"dispatch.batch":             true,
	"dispatch.concurrency":       4,
	"dispatch.retries":           2,
	"dispatch.retry_delay":       2 * time.Second,
	"dispatch.poll_interval":     5.0,
	"dispatch.timeout_minutes":   30.0,
	"dispatch.fallback_interval": 100 * time.Millisecond,
	"dispatch.overwrite":         false,
	"dispatch.limit":             0,
	"paths.input":                "recipes.csv",
	"paths.source_dir":           "",
	"paths.output_dir":           "",
	"paths.template_dir":         "",
	"paths.image_dir":            "images",
	"translation.languages":      []string{},
	"images.format":              "jpg",
}

// legacyEnv maps keys to the environment variables the generation scripts
// have always read. The FORGE_ variable wins when both are set.
var legacyEnv = map[string]string{
	"llm.mistral_api_key":      "MISTRAL_API_KEY",
	"llm.mistral_model":        "MISTRAL_MODEL",
	"llm.gemini_api_key":       "GEMINI_API_KEY",
	"database.url":             "DATABASE_URL",
	"paths.output_dir":         "OUTPUT_DIR",
	"paths.source_dir":         "RECIPES_DIR",
	"dispatch.poll_interval":   "MISTRAL_BATCH_POLL_INTERVAL",
	"dispatch.timeout_minutes": "MISTRAL_BATCH_TIMEOUT_MINUTES",
	"translation.languages":    "TRANSLATION_LANGUAGES",
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"port":            "server.port",
	"log-level":       "server.log_level",
	"database-url":    "database.url",
	"provider":        "llm.provider",
	"model":           "llm.mistral_model",
	"batch":           "dispatch.batch",
	"concurrency":     "dispatch.concurrency",
	"retries":         "dispatch.retries",
	"poll-interval":   "dispatch.poll_interval",
	"timeout-minutes": "dispatch.timeout_minutes",
	"overwrite":       "dispatch.overwrite",
	"limit":           "dispatch.limit",
	"input":           "paths.input",
	"source-dir":      "paths.source_dir",
	"output-dir":      "paths.output_dir",
	"template-dir":    "paths.template_dir",
	"image-dir":       "paths.image_dir",
	"languages":       "translation.languages",
	"format":          "images.format",
}

// Options tune where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, forge.yaml is looked
	// up in the working directory and skipped if absent
	ConfigFile string

	// Flags are bound by the names in FlagKeys. Only flags the user set
	// override lower layers
	Flags *pflag.FlagSet
}

// Load configuration from defaults, the config file, environment variables
// and flags, in increasing order of precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("forge")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		primary := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, primary, legacy); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", legacy, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
