// Package config resolves runtime settings for the price desk from the
// environment, optionally seeded from a local .env file.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	defaultPort       = 8501
	defaultCatalogTTL = 10 * time.Minute
)

// LoadEnvFile loads variables from the given dotenv files (".env" when none
// are given). Variables already present in the environment win. A missing
// file is not an error.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("PRICEDESK_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("PRICEDESK_DEBUG") == "true"
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("PRICEDESK_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetListen() string {
	return os.Getenv("PRICEDESK_LISTEN")
}

// GetPort returns the HTTP port, falling back to the default on a missing or
// malformed value.
func GetPort() int {
	port, err := strconv.Atoi(os.Getenv("PRICEDESK_PORT"))
	if err != nil || port <= 0 || port > 65535 {
		return defaultPort
	}
	return port
}

func GetCertFile() string {
	return os.Getenv("PRICEDESK_CERT_FILE")
}

func GetKeyFile() string {
	return os.Getenv("PRICEDESK_KEY_FILE")
}

// GetSessionSecret returns the cookie signing key. Empty means the server
// generates a throwaway key at start-up.
func GetSessionSecret() string {
	return os.Getenv("PRICEDESK_SESSION_SECRET")
}

// GetCatalogTTL returns how long a loaded price sheet is served from memory.
func GetCatalogTTL() time.Duration {
	raw := os.Getenv("PRICEDESK_CATALOG_TTL")
	if raw == "" {
		return defaultCatalogTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		return defaultCatalogTTL
	}
	return ttl
}
