// Package config loads server configuration.
//
// Sources, later ones winning: built-in defaults, an optional YAML file
// (path in CONFIG_FILE), a .env file, and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settled-expense delete policies.
const (
	PolicyCascade       = "cascade"
	PolicyRejectSettled = "reject-settled"
)

// Config represents the server configuration.
type Config struct {
	Port          int           `yaml:"port"`
	DBPath        string        `yaml:"db_path"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
	LogLevel      string        `yaml:"log_level"`

	// SettledDeletePolicy is PolicyCascade or PolicyRejectSettled.
	SettledDeletePolicy string `yaml:"settled_delete_policy"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                8080,
		DBPath:              "./data/splitwiser.db",
		TokenDuration:       24 * time.Hour,
		LogLevel:            "info",
		SettledDeletePolicy: PolicyCascade,
	}
}

// Load builds the configuration. An explicit envPath must exist; otherwise
// a .env in the working directory is loaded when present.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %s", v)
		}
		c.Port = port
	}
	if v := os.Getenv("TOKEN_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_DURATION: %w", err)
		}
		c.TokenDuration = d
	}
	c.DBPath = getEnvOrDefault("DB_PATH", c.DBPath)
	c.JWTSecret = getEnvOrDefault("JWT_SECRET", c.JWTSecret)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.SettledDeletePolicy = getEnvOrDefault("SETTLED_DELETE_POLICY", c.SettledDeletePolicy)
	return nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required (set JWT_SECRET)"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}
	switch c.SettledDeletePolicy {
	case PolicyCascade, PolicyRejectSettled:
	default:
		errs = append(errs, fmt.Errorf("unknown settled_delete_policy %q", c.SettledDeletePolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
