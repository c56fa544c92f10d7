package config

import (
	"log/slog"
	"os"
	"strconv"
)

const (
	// DefaultJobDepth is the search depth workers analyze queued positions to.
	DefaultJobDepth = 10

	// MaxOpeningPlies bounds how deep into a game the openings importer seeds
	// positions.
	MaxOpeningPlies = 12
)

// ServerConfig holds all configuration values loaded from environment variables.
type ServerConfig struct {
	ServerHost        string
	ServerPort        string
	RedisURL          string
	PostgresURL       string
	BasicAuthUsername string
	BasicAuthPassword string
	Token             string
	Prefork           bool
	StaticDir         string
}

// LoadServerConfig loads configuration from environment variables.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerHost:        getEnvMust("SKEWER_SERVER_HOST"),
		ServerPort:        getEnvMust("SKEWER_SERVER_PORT"),
		RedisURL:          getEnvMust("SKEWER_REDIS_URL"),
		PostgresURL:       getEnvMust("SKEWER_POSTGRES_URL"),
		BasicAuthUsername: getEnvMust("SKEWER_SERVER_BASIC_AUTH_USER"),
		BasicAuthPassword: getEnvMust("SKEWER_SERVER_BASIC_AUTH_PASS"),
		Token:             getEnvMust("SKEWER_SERVER_TOKEN"),
		Prefork:           getEnvMustBool("SKEWER_SERVER_PREFORK"),
		StaticDir:         getEnvMust("SKEWER_SERVER_STATIC_DIR"),
	}
}

// WorkerConfig holds all configuration values for the analysis worker.
type WorkerConfig struct {
	ServerURL string
	Token     string
	Threads   int
}

// LoadWorkerConfig loads worker configuration from environment variables.
func LoadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		ServerURL: getEnvMust("SKEWER_SERVER_URL"),
		Token:     getEnvMust("SKEWER_SERVER_TOKEN"),
		Threads:   getEnvMustInt("SKEWER_WORKER_THREADS"),
	}
}

// getEnvMust either returns the environment variable or logs a fatal error if it is not set.
func getEnvMust(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("Environment variable is not set", "key", key)
		os.Exit(1)
	}
	return value
}

func getEnvMustBool(key string) bool {
	value := getEnvMust(key)

	if value != "true" && value != "false" {
		slog.Error("Cannot load environment variable, it must be \"true\" or \"false\"", "key", key, "value", value)
		os.Exit(1)
	}

	return value == "true"
}

func getEnvMustInt(key string) int {
	value := getEnvMust(key)

	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Error("Cannot load environment variable, it must be an integer", "key", key, "value", value)
		os.Exit(1)
	}

	return parsed
}
