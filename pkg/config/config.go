package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	EncryptionKey      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string
	LLMAPIKey          string
	LLMBaseURL         string
	SyncInterval       time.Duration
	SyncMaxResults     int
	CategorizeBatch    int
	CategorizeDelay    time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	syncInterval := 60 * time.Second
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			syncInterval = parsed
		}
	}

	categorizeDelay := 2 * time.Second
	if v := os.Getenv("CATEGORIZE_BATCH_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			categorizeDelay = parsed
		}
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=inboxhub port=5432 sslmode=disable"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		EncryptionKey:      getEnv("TOKEN_ENCRYPTION_KEY", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/connections/gmail/callback"),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		SyncInterval:       syncInterval,
		SyncMaxResults:     getEnvInt("SYNC_MAX_RESULTS", 50),
		CategorizeBatch:    getEnvInt("CATEGORIZE_BATCH_SIZE", 50),
		CategorizeDelay:    categorizeDelay,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
