package config

import (
	"fmt"
	"os"
)

// EmbeddingConfig defines configuration for the text-embedding provider.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"`        // Provider type: "jina", "ark", "openai-compatible"
	Model          string `mapstructure:"model"`           // Model name/ID
	APIKey         string `mapstructure:"api_key"`         // API key (can be set directly or via env var)
	APIKeyEnv      string `mapstructure:"api_key_env"`     // Environment variable name for API key
	BaseURL        string `mapstructure:"base_url"`        // Base URL for OpenAI-compatible APIs
	Dimensions     int    `mapstructure:"dimensions"`      // Embedding vector dimensions
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // HTTP client timeout
}

// ResolveEnvVars resolves environment variable references in the configuration.
// If APIKeyEnv is set, its value is loaded from environment. A directly set
// APIKey takes precedence.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("embedding: provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}

	switch c.Provider {
	case "jina", "ark", "openai-compatible":
		// Valid providers
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}

	return nil
}

// ValidateWithAPIKey validates the configuration including the API key
// requirement. Use this when the embedding will actually be used.
func (c *EmbeddingConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("embedding: api_key is required")
	}
	return nil
}
