/*
Package config loads server configuration from the environment.

KEYS (defaults in parentheses):
  PORT                   HTTP port (8080)
  DB_PATH                SQLite file, ":memory:" allowed (cashflow.db)
  LOG_LEVEL              zerolog level name (info)
  LOG_FORMAT             console | json (console)
  CORS_ALLOWED_ORIGINS   comma separated (http://localhost:5173,http://localhost:8080)
  FORECAST_JOB_SCHEDULE  cron spec for the low-balance job (0 6 * * *); "off" disables it
  FORECAST_HORIZON_DAYS  days projected by the job (90)
  LOW_BALANCE_THRESHOLD  decimal; lower projected balances are reported (0)

A .env file, if present, is loaded by cmd/server before LoadConfig runs.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the server.
type Config struct {
	Port                string `mapstructure:"PORT"`
	DBPath              string `mapstructure:"DB_PATH"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	LogFormat           string `mapstructure:"LOG_FORMAT"`
	CORSAllowedOrigins  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ForecastJobSchedule string `mapstructure:"FORECAST_JOB_SCHEDULE"`
	ForecastHorizonDays int    `mapstructure:"FORECAST_HORIZON_DAYS"`
	LowBalanceThreshold string `mapstructure:"LOW_BALANCE_THRESHOLD"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_PATH", "cashflow.db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")
	viper.SetDefault("FORECAST_JOB_SCHEDULE", "0 6 * * *") // Every day at 06:00.
	viper.SetDefault("FORECAST_HORIZON_DAYS", 90)
	viper.SetDefault("LOW_BALANCE_THRESHOLD", "0")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, key := range []string{
		"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
		"FORECAST_JOB_SCHEDULE", "FORECAST_HORIZON_DAYS", "LOW_BALANCE_THRESHOLD",
	} {
		_ = viper.BindEnv(key)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if strings.EqualFold(config.ForecastJobSchedule, "off") {
		config.ForecastJobSchedule = ""
	}
	if config.ForecastHorizonDays < 1 {
		return nil, fmt.Errorf("FORECAST_HORIZON_DAYS must be >= 1, got %d", config.ForecastHorizonDays)
	}
	if _, err := decimal.NewFromString(config.LowBalanceThreshold); err != nil {
		return nil, fmt.Errorf("LOW_BALANCE_THRESHOLD %q is not a decimal", config.LowBalanceThreshold)
	}

	return &config, nil
}

// AllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Threshold returns LowBalanceThreshold as a decimal. LoadConfig has
// already validated it.
func (c *Config) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(c.LowBalanceThreshold)
	if err != nil {
		return decimal.Zero
	}
	return d
}
