package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	ServerAddress string        `mapstructure:"SERVER_ADDRESS"`
	StoreDriver   string        `mapstructure:"STORE_DRIVER"`
	PostgresConn  string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL  string        `mapstructure:"MIGRATION_URL"`
	SQLitePath    string        `mapstructure:"SQLITE_PATH"`
	StoreTimeout  time.Duration `mapstructure:"STORE_TIMEOUT"`
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	GinMode       string        `mapstructure:"GIN_MODE"`
	SeedDemoData  bool          `mapstructure:"SEED_DEMO_DATA"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS": ":8080",
	"STORE_DRIVER":   DriverMemory,
	"POSTGRES_CONN":  "",
	"MIGRATION_URL":  "file://migrations",
	"SQLITE_PATH":    "./auctions.db",
	"STORE_TIMEOUT":  "2s",
	"SWEEP_INTERVAL": "0s",
	"LOG_LEVEL":      "info",
	"GIN_MODE":       "release",
	"SEED_DEMO_DATA": true,
}

// LoadConfig reads configuration from an optional .env file, an optional app.env in path,
// and the process environment, in increasing order of precedence
func LoadConfig(path string) (cfg Config, err error) {
	// .env only fills variables that are not already set
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.PostgresConn == "" {
			return errors.New("config: POSTGRES_CONN is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("config: SWEEP_INTERVAL must not be negative, got %s", c.SweepInterval)
	}
	return nil
}
