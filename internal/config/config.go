package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		// API_KEY is accepted as a fallback name for compatibility
		GeminiAPIKey: getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		DatabaseURL:  getEnv("DATABASE_URL", "fasoagent.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.GeminiAPIKey == "" {
		// Not fatal: every call path has a degraded-mode response without a key.
		log.Println("GEMINI_API_KEY not set, assistant will run in degraded mode")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
