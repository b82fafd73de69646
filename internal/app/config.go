package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/authsdk"
)

type Config struct {
	APIURL      string        // Base API URL (default: authsdk.DefaultBaseURL)
	Timeout     time.Duration // Per-request timeout (default: 10s)
	StoreKind   string        // Credential backend: file, sqlite, memory (default: file)
	StorePath   string        // Backend file or database path (default: $XDG_CONFIG_HOME/authctl/...)
	MetricsFile string        // Optional: write client metrics here after each command

	CoalesceRefresh   bool // Share one refresh between concurrent requests (default: false)
	RefreshPerMinute  int  // Optional: cap on refresh calls per minute (default: 0, unlimited)
	DevAddr           string
	DevRotateRefresh  bool
	DevAccessTokenTTL time.Duration

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)

	ShutdownGracePeriod time.Duration // Dev server shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		APIURL:      getEnvOrDefault("AUTH_API_URL", authsdk.DefaultBaseURL),
		Timeout:     getEnvDurationOrDefault("AUTH_TIMEOUT", authsdk.DefaultTimeout),
		StoreKind:   strings.ToLower(getEnvOrDefault("AUTH_STORE", "file")),
		StorePath:   os.Getenv("AUTH_STORE_PATH"),
		MetricsFile: os.Getenv("AUTH_METRICS_FILE"),

		CoalesceRefresh:   getEnvBoolOrDefault("AUTH_COALESCE_REFRESH", false),
		RefreshPerMinute:  getEnvIntOrDefault("AUTH_REFRESH_PER_MINUTE", 0),
		DevAddr:           getEnvOrDefault("DEV_ADDR", "localhost:5097"),
		DevRotateRefresh:  getEnvBoolOrDefault("DEV_ROTATE_REFRESH", false),
		DevAccessTokenTTL: getEnvDurationOrDefault("DEV_ACCESS_TOKEN_TTL", 0),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.StorePath == "" {
		cfg.StorePath = defaultStorePath(cfg.StoreKind)
	}

	return cfg
}

// defaultStorePath places credentials in the user config directory, falling
// back to the working directory.
func defaultStorePath(kind string) string {
	name := "session.json"
	if kind == "sqlite" {
		name = "session.db"
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "authctl", name)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
