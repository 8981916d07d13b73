package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string
	MongoURI            string
	MongoDBName         string
	MongoConnectTimeout time.Duration
	JWTSecret           string
	TokenTTL            time.Duration
	BcryptCost          int
	LogLevel            string
	LogFormat           string
	LogFile             string
	LogMaxSizeMB        int
	MediaDir            string
	MediaBaseURL        string
	UploadWorkers       int
	MaxUploadMB         int
	AuthRatePerMinute   int
	AuthRateBurst       int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		MongoURI:            envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:         envOr("MONGO_DB_NAME", "quests"),
		MongoConnectTimeout: time.Duration(envIntOr("MONGO_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		JWTSecret:           os.Getenv("JWT_SECRET_KEY"),
		TokenTTL:            time.Duration(envIntOr("TOKEN_TTL_HOURS", 24)) * time.Hour,
		BcryptCost:          envIntOr("BCRYPT_COST", 10),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogFormat:           envOr("LOG_FORMAT", "text"),
		LogFile:             os.Getenv("LOG_FILE"),
		LogMaxSizeMB:        envIntOr("LOG_MAX_SIZE_MB", 50),
		MediaDir:            envOr("MEDIA_DIR", "media"),
		MediaBaseURL:        envOr("MEDIA_BASE_URL", "http://localhost:8080/media"),
		UploadWorkers:       envIntOr("UPLOAD_WORKERS", 4),
		MaxUploadMB:         envIntOr("MAX_UPLOAD_MB", 20),
		AuthRatePerMinute:   envIntOr("AUTH_RATE_PER_MINUTE", 30),
		AuthRateBurst:       envIntOr("AUTH_RATE_BURST", 10),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
		problems = append(problems, "MONGO_URI must start with mongodb:// or mongodb+srv://")
	}
	if c.MongoDBName == "" {
		problems = append(problems, "MONGO_DB_NAME cannot be empty")
	}
	if c.MongoConnectTimeout <= 0 {
		problems = append(problems, "MONGO_CONNECT_TIMEOUT_SECONDS must be positive")
	}
	if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET_KEY must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL_HOURS must be positive")
	}
	// bcrypt accepts 4..31
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT %q is not one of text, json", c.LogFormat))
	}
	if c.LogFile != "" && c.LogMaxSizeMB <= 0 {
		problems = append(problems, "LOG_MAX_SIZE_MB must be positive when LOG_FILE is set")
	}
	if c.MediaDir == "" {
		problems = append(problems, "MEDIA_DIR cannot be empty")
	}
	if c.MediaBaseURL == "" {
		problems = append(problems, "MEDIA_BASE_URL cannot be empty")
	}
	if c.UploadWorkers <= 0 {
		problems = append(problems, "UPLOAD_WORKERS must be positive")
	}
	if c.MaxUploadMB <= 0 {
		problems = append(problems, "MAX_UPLOAD_MB must be positive")
	}
	if c.AuthRatePerMinute <= 0 {
		problems = append(problems, "AUTH_RATE_PER_MINUTE must be positive")
	}
	if c.AuthRateBurst <= 0 {
		problems = append(problems, "AUTH_RATE_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
