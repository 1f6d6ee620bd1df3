// Package config loads the server configuration from the environment.
// A .env file in the working directory is read first when present;
// real environment variables take precedence over it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds application configuration.
type Config struct {
	GRPCPort    string
	APIToken    string
	Environment string
	LogLevel    string

	DataBackend  string
	DBConnStr    string
	SQLitePath   string
	DBStartDelay time.Duration

	AMQPURL      string
	AMQPExchange string

	RateLimit string
	SeedDemo  bool

	ShutdownTimeout time.Duration
}

// Load reads the configuration. Missing values fall back to development defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("GRPC_PORT", "8080")
	v.SetDefault("API_TOKEN", "dev-token")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATA_BACKEND", BackendMemory)
	v.SetDefault("DB_CONN_STR", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "splitledger")
	v.SetDefault("DB_START_DELAY", "0s")
	v.SetDefault("SQLITE_DB_PATH", "data/splitledger.db")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "splitledger.events")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("SEED_DEMO", false)
	v.AutomaticEnv()

	cfg := &Config{
		GRPCPort:        v.GetString("GRPC_PORT"),
		APIToken:        v.GetString("API_TOKEN"),
		Environment:     strings.ToLower(v.GetString("ENVIRONMENT")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		DataBackend:     strings.ToLower(v.GetString("DATA_BACKEND")),
		DBConnStr:       v.GetString("DB_CONN_STR"),
		SQLitePath:      v.GetString("SQLITE_DB_PATH"),
		DBStartDelay:    v.GetDuration("DB_START_DELAY"),
		AMQPURL:         v.GetString("AMQP_URL"),
		AMQPExchange:    v.GetString("AMQP_EXCHANGE"),
		RateLimit:       v.GetString("RATE_LIMIT"),
		SeedDemo:        v.GetBool("SEED_DEMO"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	// Build the connection string from individual vars when not given explicitly (Docker friendly)
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			v.GetString("DB_HOST"), v.GetString("DB_PORT"), v.GetString("DB_USER"), v.GetString("DB_PASSWORD"), v.GetString("DB_NAME"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted safely
func (c *Config) Validate() error {
	var errs []error

	if c.GRPCPort == "" {
		errs = append(errs, errors.New("GRPC_PORT must not be empty"))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN must not be empty"))
	}
	switch c.DataBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATA_BACKEND %q is not one of memory, postgres, sqlite", c.DataBackend))
	}
	if c.DataBackend == BackendSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_DB_PATH must be set for the sqlite backend"))
	}
	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT: %w", err))
		}
	}
	if c.IsProduction() && c.APIToken == "dev-token" {
		errs = append(errs, errors.New("API_TOKEN must be changed in production"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ListenAddr returns the TCP address the gRPC server binds to
func (c *Config) ListenAddr() string {
	if strings.Contains(c.GRPCPort, ":") {
		return c.GRPCPort
	}
	return ":" + c.GRPCPort
}
