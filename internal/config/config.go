package config

import (
	"os"
	"strconv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppName     string
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string

	// Outbound email. With an empty SendGrid key the console mailer is used.
	SendGridKey string
	FromEmail   string

	// StorageDir is where uploaded document files live.
	StorageDir string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		AppName:     getEnv("APP_NAME", "ASCAI"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/ascai?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		SendGridKey: os.Getenv("SENDGRID_API_KEY"),
		FromEmail:   getEnv("FROM_EMAIL", "noreply@ascai.example.org"),
		StorageDir:  getEnv("STORAGE_DIR", "./data/documents"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
