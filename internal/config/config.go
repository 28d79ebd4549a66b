package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	DatabasePath   string
	Port           string
	AllowedOrigins string
	BaseURL        string
	LogLevel       string

	SessionDuration time.Duration

	UploadDir           string
	UploadURLPrefix     string
	MaxUploadBytes      int64
	MaxImagesPerListing int
	LegalDocsDir        string

	AdminEmail string

	MailgunDomain      string
	MailgunAPIKey      string
	MailgunSenderEmail string
	MailgunSenderName  string
	// MailgunAPIBase overrides the Mailgun endpoint, e.g. the EU region.
	MailgunAPIBase string
}

// Load reads the process environment, after merging an optional .env file.
func Load() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return &Config{
		Environment:    getEnv("ENVIRONMENT", "production"),
		DatabasePath:   getEnv("DATABASE_PATH", "arthings.db"),
		Port:           getEnv("PORT", "3000"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),

		SessionDuration: getDuration("SESSION_DURATION", 24*time.Hour),

		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		UploadURLPrefix:     "/uploads",
		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		MaxImagesPerListing: getInt("MAX_IMAGES_PER_LISTING", 5),
		LegalDocsDir:        getEnv("LEGAL_DOCS_DIR", "legal"),

		AdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),

		MailgunDomain:      os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey:      os.Getenv("MAILGUN_API_KEY"),
		MailgunSenderEmail: getEnv("MAILGUN_SENDER_EMAIL", "noreply@arthings.local"),
		MailgunSenderName:  getEnv("MAILGUN_SENDER_NAME", "Arthings"),
		MailgunAPIBase:     os.Getenv("MAILGUN_API_BASE"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
