package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultWhatsAppBaseURL = "https://graph.facebook.com/v19.0"

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver   string // postgres or sqlite
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBLogLevel string

	// Process-wide WhatsApp fallback, used when a company has no settings of its own.
	WhatsAppBaseURL       string
	WhatsAppPhoneNumberID string
	WhatsAppAccessToken   string
	VerifyToken           string

	RedisURL string
	DedupTTL time.Duration
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return FromEnv()
}

// FromEnv builds the config from the current environment without touching .env.
func FromEnv() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		GinMode:               getEnv("GIN_MODE", "debug"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DBDriver:              getEnv("DB_DRIVER", "postgres"),
		DBPath:                getEnv("DB_PATH", "./bugalou.db"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBName:                getEnv("DB_NAME", "bugalou"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		DBLogLevel:            getEnv("DB_LOG_LEVEL", "warn"),
		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", DefaultWhatsAppBaseURL),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		VerifyToken:           getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		DedupTTL:              getEnvDuration("DEDUP_TTL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
