package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds settings shared by the CLI and the HTTP server.
type Config struct {
	Port             string
	LogLevel         string
	StaticDir        string
	PageWorkers      int
	BalanceTolerance decimal.Decimal
	MaxUploadMB      int
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("PAGE_WORKERS", 4)
	v.SetDefault("BALANCE_TOLERANCE", "0")
	v.SetDefault("MAX_UPLOAD_MB", 32)
}

// Load reads an optional .env file, then the process environment.
// Environment variables win over .env values.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	tolerance, err := decimal.NewFromString(strings.TrimSpace(v.GetString("BALANCE_TOLERANCE")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BALANCE_TOLERANCE %q: %w", v.GetString("BALANCE_TOLERANCE"), err)
	}
	if tolerance.IsNegative() {
		return Config{}, fmt.Errorf("BALANCE_TOLERANCE must not be negative, got %s", tolerance)
	}

	cfg := Config{
		Port:             v.GetString("PORT"),
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		StaticDir:        v.GetString("STATIC_DIR"),
		PageWorkers:      v.GetInt("PAGE_WORKERS"),
		BalanceTolerance: tolerance,
		MaxUploadMB:      v.GetInt("MAX_UPLOAD_MB"),
	}
	if cfg.PageWorkers < 1 {
		return Config{}, fmt.Errorf("PAGE_WORKERS must be at least 1, got %d", cfg.PageWorkers)
	}
	if cfg.MaxUploadMB < 1 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be at least 1, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}
