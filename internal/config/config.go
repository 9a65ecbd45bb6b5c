package config

import (
	"os"
	"strconv"
	"time"

	"survivaldash/internal/errors"

	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Server     ServerConfig     `yaml:"server"`
	Prediction PredictionConfig `yaml:"prediction"`
	Log        LogConfig        `yaml:"log"`
}

// WarehouseConfig holds the remote table service connection settings
type WarehouseConfig struct {
	Driver          string        `yaml:"driver"` // postgres or sqlite3
	URL             string        `yaml:"url"`
	Table           string        `yaml:"table"`
	ScoringFunction string        `yaml:"scoring_function"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// PredictionConfig holds scoring cache settings
type PredictionConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Driver:          "sqlite3",
			URL:             "file:survivaldash.db?cache=shared",
			Table:           "TITANIC",
			ScoringFunction: "survived",
			MaxOpenConns:    8,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		Prediction: PredictionConfig{CacheSize: 1024},
		Log: LogConfig{
			Level:      "INFO",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables, and validates it.
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return errors.New(errors.CodeConfigInvalid, err.Error())
	}
	return nil
}

func applyEnv(config *Config) {
	w := &config.Warehouse
	w.Driver = getEnvOrDefault("WAREHOUSE_DRIVER", w.Driver)
	w.URL = getEnvOrDefault("WAREHOUSE_URL", w.URL)
	w.Table = getEnvOrDefault("WAREHOUSE_TABLE", w.Table)
	w.ScoringFunction = getEnvOrDefault("SCORING_FUNCTION", w.ScoringFunction)
	w.MaxOpenConns = getEnvIntOrDefault("WAREHOUSE_MAX_OPEN_CONNS", w.MaxOpenConns)
	w.ConnMaxLifetime = getEnvDurationOrDefault("WAREHOUSE_CONN_MAX_LIFETIME", w.ConnMaxLifetime)

	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Server.GinMode = getEnvOrDefault("GIN_MODE", config.Server.GinMode)

	config.Prediction.CacheSize = getEnvIntOrDefault("PREDICTION_CACHE_SIZE", config.Prediction.CacheSize)

	config.Log.Level = getEnvOrDefault("LOG_LEVEL", config.Log.Level)
	config.Log.File = getEnvOrDefault("LOG_FILE", config.Log.File)
}

func validateConfig(config *Config) error {
	switch config.Warehouse.Driver {
	case "postgres", "sqlite3":
	default:
		return errors.ConfigInvalid("WAREHOUSE_DRIVER must be postgres or sqlite3")
	}
	if config.Warehouse.URL == "" {
		return errors.ConfigInvalid("WAREHOUSE_URL is required")
	}
	if config.Warehouse.Table == "" {
		return errors.ConfigInvalid("WAREHOUSE_TABLE is required")
	}
	if config.Warehouse.ScoringFunction == "" {
		return errors.ConfigInvalid("SCORING_FUNCTION is required")
	}
	if config.Prediction.CacheSize <= 0 {
		return errors.ConfigInvalid("PREDICTION_CACHE_SIZE must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
