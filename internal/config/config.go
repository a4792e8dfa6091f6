package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Worker  WorkerConfig
	CORS    CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// StorageConfig holds the on-disk layout: where portfolio event logs live,
// where derived caches are written, and where the worker log database sits.
type StorageConfig struct {
	DataDir  string
	CacheDir string
	LogDB    string
}

// WorkerConfig holds the background worker's timer intervals.
type WorkerConfig struct {
	MaintenanceInterval time.Duration
	RealtimeInterval    time.Duration
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Storage: StorageConfig{
			DataDir:  dataDir,
			CacheDir: getEnv("CACHE_DIR", filepath.Join(dataDir, "cache")),
			LogDB:    getEnv("LOG_DB_PATH", filepath.Join(dataDir, "worker_log.db")),
		},
		Worker: WorkerConfig{
			MaintenanceInterval: getEnvSeconds("MAINTENANCE_INTERVAL_SEC", 180),
			RealtimeInterval:    getEnvSeconds("REALTIME_INTERVAL_SEC", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvSeconds parses an integer seconds variable into a duration.
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	value := os.Getenv(key)
	if value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}

// getEnvList parses a comma-separated variable into a slice.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
