package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig configures the remote feature-extractor backend.
type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"`    // "http" is the only network provider
	BaseURL   string        `mapstructure:"base_url"`    // inference server root
	APIKey    string        `mapstructure:"api_key"`     // optional bearer token
	APIKeyEnv string        `mapstructure:"api_key_env"` // env var to read APIKey from
	Model     string        `mapstructure:"model"`       // model identifier sent with each request
	InputSize int           `mapstructure:"input_size"`  // square resize before upload, 0 disables
	Timeout   time.Duration `mapstructure:"timeout"`
	// LayerAliases maps backend stage names (e.g. "layer1") to engine layer names (e.g. "early").
	LayerAliases map[string]string `mapstructure:"layer_aliases"`
}

// ResolveEnvVars fills APIKey from APIKeyEnv when APIKey is not set directly.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKey == "" && c.APIKeyEnv != "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "http":
		if c.BaseURL == "" {
			return fmt.Errorf("embedding: base_url is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.InputSize < 0 {
		return fmt.Errorf("embedding: input_size must not be negative")
	}
	return nil
}
