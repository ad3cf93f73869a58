package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// Loader reads configuration from a YAML file, overlaying environment
// variables loaded from an optional .env file. ${VAR} placeholders inside
// the YAML are expanded against the environment, which keeps API keys out
// of config files.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader for the given config path. An empty path falls
// back to ".config.yaml".
func NewLoader(path string) *Loader {
	if path == "" {
		path = ".config.yaml"
	}
	return &Loader{path: path, useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Load reads, expands, parses, and validates the configuration. A missing
// config file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	if l.useDotEnv {
		// No .env file is fine; the process environment still applies.
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			expandSecrets(cfg)
			return cfg, nil
		}
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "failed to read config file", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "failed to parse config file", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandSecrets resolves ${VAR} placeholders left in the default config.
func expandSecrets(cfg *Config) {
	for name, p := range cfg.Providers {
		p.APIKey = os.Expand(p.APIKey, os.Getenv)
		cfg.Providers[name] = p
	}
	cfg.Classifier.APIKey = os.Expand(cfg.Classifier.APIKey, os.Getenv)
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Generation.BatchSize <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("batch_size must be positive, got %d", cfg.Generation.BatchSize))
	}
	if cfg.Generation.NarratorName == "" {
		return platformerrors.New(platformerrors.KindConfig, "validate", "narrator_name cannot be empty")
	}
	if len(cfg.Providers) == 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate", "no synthesis providers configured")
	}
	if _, ok := cfg.Providers[cfg.Selected.Primary]; !ok {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("primary provider %q not configured", cfg.Selected.Primary))
	}
	if cfg.Selected.Fallback != "" {
		if _, ok := cfg.Providers[cfg.Selected.Fallback]; !ok {
			return platformerrors.New(platformerrors.KindConfig, "validate",
				fmt.Sprintf("fallback provider %q not configured", cfg.Selected.Fallback))
		}
	}
	if cfg.Assembly.TargetLUFS > 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("target_lufs must be negative, got %.1f", cfg.Assembly.TargetLUFS))
	}
	if len(cfg.Assembly.Formats) == 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate", "at least one output format required")
	}
	switch cfg.Catalog.Type {
	case "", "memory", "redis":
	default:
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("unknown catalog cache type %q", cfg.Catalog.Type))
	}
	return nil
}
