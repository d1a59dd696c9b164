package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/i474232898/macro-heatmap/internal/config"
	"github.com/i474232898/macro-heatmap/internal/macro"
	"github.com/i474232898/macro-heatmap/internal/macro/providers"
	"github.com/i474232898/macro-heatmap/internal/metrics"
	"github.com/i474232898/macro-heatmap/internal/store"
	"github.com/i474232898/macro-heatmap/internal/store/sqlite"
)

// rootCmd is the base command for the macro-heatmap CLI
var rootCmd = &cobra.Command{
	Use:   "macro-heatmap",
	Short: "Recession indicator heatmap",
	Long: `macro-heatmap classifies monthly macroeconomic indicators into
healthy, caution, warning and missing cells against per-indicator thresholds,
and serves or renders the resulting grid.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// app bundles everything the subcommands share.
type app struct {
	cfg     *config.AppConfig
	service *macro.Service
	metrics *metrics.Metrics
	archive *sqlite.Archive
}

func (a *app) Close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			log.Warn().Err(err).Msg("closing archive")
		}
	}
}

// bootstrap loads config and the indicator table and wires providers, the
// archive and the service. Invalid indicator configs are fatal here.
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)

	catalog, err := macro.LoadCatalog(cfg.IndicatorsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicators: %w", err)
	}
	log.Info().Int("indicators", catalog.Len()).Str("path", cfg.IndicatorsPath).Msg("loaded indicator table")

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var provs []macro.Provider
	if cfg.SheetCSVURL != "" {
		provs = append(provs, providers.NewSheetCSVProvider(httpClient, cfg.SheetCSVURL))
	}
	if cfg.FREDAPIKey != "" {
		series := providers.SeriesFromCatalog(catalog)
		if len(series) == 0 {
			log.Warn().Msg("FRED_API_KEY set but no indicator names a fred_series")
		} else {
			provs = append(provs, providers.NewFREDProvider(httpClient, cfg.FREDBaseURL, cfg.FREDAPIKey, series))
		}
	}

	m := metrics.New()
	service := macro.NewService(catalog, func() macro.ObservationStore { return store.NewMemoryStore() }, provs).
		WithMetrics(m).
		WithDefaultMonths(cfg.DefaultMonths)

	a := &app{cfg: cfg, service: service, metrics: m}
	if cfg.ArchivePath != "" {
		archive, err := sqlite.New(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		a.archive = archive
		service.WithArchive(archive)
	}

	if len(provs) == 0 {
		if a.archive == nil {
			a.Close()
			return nil, config.ErrNoSource
		}
		log.Warn().Err(config.ErrNoSource).Msg("serving from archive only")
	}
	return a, nil
}

// loadOnce runs a single blocking reload for the one-shot commands.
func (a *app) loadOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RefreshTimeout)
	defer cancel()
	return a.service.Refresh(ctx)
}
