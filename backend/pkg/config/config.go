package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// ModelScope (OpenAI-compatible API)
	ModelScopeAPIBase string
	ModelScopeAPIKey  string
	ModelName         string
	CoderModelName    string
	MaxTokens         int

	// Graph traversal
	MaxTreeDepth int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		ModelScopeAPIBase: getEnv("MODELSCOPE_API_BASE", "https://api.modelscope.cn/v1"),
		ModelScopeAPIKey:  getEnv("MODELSCOPE_API_KEY", ""),
		ModelName:         getEnv("MODEL_NAME", "qwen2.5-72b-instruct"),
		CoderModelName:    getEnv("CODER_MODEL_NAME", "qwen2.5-coder-7b-instruct"),
		MaxTokens:         getEnvInt("MAX_TOKENS", 2000),
		MaxTreeDepth:      getEnvInt("MAX_TREE_DEPTH", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.ModelScopeAPIBase == "" {
		return fmt.Errorf("MODELSCOPE_API_BASE is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("MODEL_NAME is required")
	}
	if c.MaxTreeDepth < 1 {
		return fmt.Errorf("MAX_TREE_DEPTH must be positive")
	}
	// The API key is optional for development against a local endpoint
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
