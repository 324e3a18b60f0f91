package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Shared
	Environment   string
	MaxUploadSize int64

	// Client
	ServerURL   string
	SessionPath string

	// Reference server
	Port            string
	DatabasePath    string
	JWTSecret       string
	CORSOrigins     string
	FileStoragePath string
}

func Load() *Config {
	// Optional .env next to the binary; env vars win. CHATUI_ENV_FILE
	// points at an explicit file instead.
	if path := os.Getenv("CHATUI_ENV_FILE"); path != "" {
		godotenv.Load(path)
	} else {
		godotenv.Load()
	}

	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		MaxUploadSize:   parseInt64(getEnv("MAX_UPLOAD_SIZE", "10485760")), // 10MB default
		ServerURL:       getEnv("CHATUI_SERVER_URL", "http://localhost:8080"),
		SessionPath:     getEnv("CHATUI_SESSION_PATH", ""),
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/chatui.db"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		FileStoragePath: getEnv("FILE_STORAGE_PATH", "./data/uploads"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt64(s string) int64 {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 10485760 // 10MB default
	}
	return val
}
