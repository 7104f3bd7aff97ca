package config

import (
	"os"
	"strconv"
	"time"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	DBMaxConns  int
	Storage     string
	DataDir     string
	CORSOrigins string
	TablePrefix string
	LogDir      string
	// Resource loading
	ResourceLoadTimeout     time.Duration
	ResourceLoadConcurrency int
	// Debug flags
	Debug bool // Enables debug-only routes and verbose logging
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Environment:             env,
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		DBMaxConns:              getInt("DATABASE_MAX_CONNS", 25),
		Storage:                 getStorage(),
		DataDir:                 getEnv("DATA_DIR", "./data"),
		CORSOrigins:             getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:             getTablePrefix(env),
		LogDir:                  getEnv("LOG_DIR", ""),
		ResourceLoadTimeout:     getDuration("RESOURCE_LOAD_TIMEOUT", 30*time.Second),
		ResourceLoadConcurrency: getInt("RESOURCE_LOAD_CONCURRENCY", 4),
		Debug:                   getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getStorage picks the backend. Anything but "postgres" falls back to the file store.
func getStorage() string {
	if getEnv("STORAGE", StorageFile) == StoragePostgres {
		return StoragePostgres
	}
	return StorageFile
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
