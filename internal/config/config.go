package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Engine   EngineConfig
	LogLevel string
	DevMode  bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// RedisConfig holds the classification cache configuration
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	ClassificationTTL time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TradesTopic string
	LedgerTopic string
	GroupID     string
}

// EngineConfig bounds the valuation engine's inputs
type EngineConfig struct {
	BenchmarkName     string
	MaxHistoryDays    int
	PriceLookbackDays int
	StaleAfterDays    int
}

// Load reads configuration from a .env file, if present, and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "portfolio"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "localhost:6379"),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                getEnvAsInt("REDIS_DB", 0),
			ClassificationTTL: time.Duration(getEnvAsInt("CLASSIFICATION_TTL_DAYS", 30)) * 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvAsBool("KAFKA_ENABLED", true),
			Brokers:     splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TradesTopic: getEnv("KAFKA_TRADES_TOPIC", "trading.orders"),
			LedgerTopic: getEnv("KAFKA_LEDGER_TOPIC", "portfolio.transactions"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "portfolio-valuation-service"),
		},
		Engine: EngineConfig{
			BenchmarkName:     getEnv("BENCHMARK_NAME", "CDI"),
			MaxHistoryDays:    getEnvAsInt("MAX_HISTORY_DAYS", 3650),
			PriceLookbackDays: getEnvAsInt("PRICE_LOOKBACK_DAYS", 10),
			StaleAfterDays:    getEnvAsInt("STALE_AFTER_DAYS", 3),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Engine.BenchmarkName == "" {
		return fmt.Errorf("BENCHMARK_NAME must not be empty")
	}
	if c.Engine.MaxHistoryDays < 0 {
		return fmt.Errorf("MAX_HISTORY_DAYS must not be negative, got %d", c.Engine.MaxHistoryDays)
	}
	if c.Engine.PriceLookbackDays < 0 {
		return fmt.Errorf("PRICE_LOOKBACK_DAYS must not be negative, got %d", c.Engine.PriceLookbackDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
