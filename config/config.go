package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	AnthropicAPIKey   string
	OpenAIAPIKey      string
	PineconeAPIKey    string
	PineconeIndexName string
	TavilyAPIKey      string
	USDAAPIKey        string

	// Agent orchestration settings. The reasoning model, the iteration cap
	// and the time budgets are all explicit configuration, not ambient state.
	AgentModel    string
	MaxIterations int
	ToolTimeout   time.Duration
	TurnTimeout   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, reading configuration from environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8000"),
		DatabaseURL: os.Getenv("DB_URL"),

		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		PineconeAPIKey:    os.Getenv("PINECONE_API_KEY"),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "food-products-index"),
		TavilyAPIKey:      os.Getenv("TAVILY_API_KEY"),
		USDAAPIKey:        os.Getenv("USDA_API_KEY"),

		AgentModel:    getEnv("AGENT_MODEL", "claude-sonnet-4-20250514"),
		MaxIterations: getEnvInt("AGENT_MAX_ITERATIONS", 8),
		ToolTimeout:   getEnvDuration("AGENT_TOOL_TIMEOUT", 20*time.Second),
		TurnTimeout:   getEnvDuration("AGENT_TURN_TIMEOUT", 2*time.Minute),
	}
}

// Validate reports missing configuration that the process cannot start
// without. Optional provider keys are not checked here; a missing provider
// key only disables the corresponding tool.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.MaxIterations)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARN] Invalid integer for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[WARN] Invalid duration for %s: %q, using default %s", key, value, fallback)
		return fallback
	}
	return parsed
}
