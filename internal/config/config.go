package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// ErrNoSource is returned when neither data source is configured.
var ErrNoSource = errors.New("at least one of SHEET_CSV_URL or FRED_API_KEY must be set")

type AppConfig struct {
	Port string `envconfig:"PORT" default:"8080" validate:"required,numeric"`

	// IndicatorsPath points at the YAML indicator table.
	IndicatorsPath string `envconfig:"INDICATORS_PATH" default:"configs/indicators.yaml" validate:"required"`

	// Data sources.
	SheetCSVURL string `envconfig:"SHEET_CSV_URL" validate:"omitempty,url"`
	FREDAPIKey  string `envconfig:"FRED_API_KEY"`
	FREDBaseURL string `envconfig:"FRED_BASE_URL" default:"https://api.stlouisfed.org/fred" validate:"omitempty,url"`

	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s" validate:"gt=0"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h" validate:"gte=1m"`
	RefreshTimeout  time.Duration `envconfig:"REFRESH_TIMEOUT" default:"2m" validate:"gt=0"`

	// ArchivePath is the sqlite file holding the last good load (empty disables it).
	ArchivePath string `envconfig:"ARCHIVE_PATH" default:"macro-heatmap.db"`

	DefaultMonths int `envconfig:"DEFAULT_MONTHS" default:"36" validate:"min=1,max=1200"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
}

var validate = validator.New()

// Load reads configuration from the environment (and .env when present).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	return FromEnv()
}

// FromEnv processes the current environment without touching .env.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.SheetCSVURL = strings.TrimSpace(cfg.SheetCSVURL)
	cfg.FREDAPIKey = strings.TrimSpace(cfg.FREDAPIKey)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
