package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	DBAutoMigrate    bool
	DBConnectRetries int
	ServerPort       string
	StoreDriver      string
	LogLevel         slog.Level
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() *Config {
	return &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "password"),
		DBName:           getEnv("DB_NAME", "banking_ledger"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		LogLevel:         parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port %q: %w", c.ServerPort, err)
	}

	if c.StoreDriver == StoreDriverPostgres {
		if _, err := strconv.Atoi(c.DBPort); err != nil {
			return fmt.Errorf("invalid database port %q: %w", c.DBPort, err)
		}
	}

	return nil
}

// GetDBConnectionString renders a lib/pq key=value DSN.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
