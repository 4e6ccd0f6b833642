/*
Package config loads server settings from the environment.

SOURCES (later wins):
  1. defaults (setDefaults)
  2. a .env file in the working directory, if present
  3. process environment

KEYS:
  ENV                      development | production
  PORT                     HTTP port
  DB_PATH                  SQLite file, ":memory:" for a throwaway store
  LOG_LEVEL, LOG_FORMAT    zap level, json | console
  ALLOWED_ORIGINS          comma separated CORS origins
  TIMEZONE                 IANA zone the unit's calendar day is taken in
  VACATION_SWEEP_INTERVAL  how often due vacations are completed
  ENABLE_SCHEDULER         run the vacation sweeper
  SEED_DEMO                load the demo unit on an empty store
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env      string
	Port     int
	DBPath   string
	Timezone string

	Log       LogConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig

	SeedDemo bool
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// SchedulerConfig controls the vacation completion sweeper.
type SchedulerConfig struct {
	Enabled       bool
	SweepInterval time.Duration
}

// Load reads the configuration from .env and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:      v.GetString("ENV"),
		Port:     v.GetInt("PORT"),
		DBPath:   v.GetString("DB_PATH"),
		Timezone: v.GetString("TIMEZONE"),
		SeedDemo: v.GetBool("SEED_DEMO"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Scheduler = SchedulerConfig{
		Enabled:       v.GetBool("ENABLE_SCHEDULER"),
		SweepInterval: parseDuration(v.GetString("VACATION_SWEEP_INTERVAL"), time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "leave.db")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("VACATION_SWEEP_INTERVAL", "1h")
	v.SetDefault("SEED_DEMO", false)
}

// isMissingFile reports an absent .env; viper surfaces it as a path error
// when the file is named explicitly.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
