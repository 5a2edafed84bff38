package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// App
	Env string

	// Discord
	DiscordToken string

	// Recorder
	OutputDir         string
	MaxSamplesPerPage int
	QueueCapacity     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist.
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("ENVIRONMENT", "development"),
		DiscordToken:      getEnv("DISCORD_TOKEN", ""),
		OutputDir:         getEnv("RECORDER_OUTPUT_DIR", "./recordings"),
		MaxSamplesPerPage: getEnvAsInt("RECORDER_MAX_SAMPLES_PER_PAGE", 200_000),
		QueueCapacity:     getEnvAsInt("RECORDER_QUEUE_CAPACITY", 1024),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("RECORDER_OUTPUT_DIR is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
