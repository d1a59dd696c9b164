package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/macro-heatmap/internal/api/http"
	"github.com/i474232898/macro-heatmap/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the heatmap API and reload observations on a schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	// Scheduler that reloads the observation store; the first run is immediate.
	sched := scheduler.New(a.cfg.RefreshInterval, a.cfg.RefreshTimeout, a.service)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := newFiberApp()

	app.Get("/health", healthHandler(a))
	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	httpapi.RegisterRoutes(app, a.service)

	go func() {
		if err := app.Listen(":" + a.cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	log.Info().Str("port", a.cfg.Port).Msg("listening")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	return nil
}

// healthHandler reports the published snapshot and, when an archive is
// configured, the id of the last snapshot written to it.
func healthHandler(a *app) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":  "ok",
			"service": "macro-heatmap",
		}
		if snap, err := a.service.Snapshot(); err == nil {
			status["snapshot"] = snap.ID
			status["loadedAt"] = snap.LoadedAt
			status["source"] = snap.Source
		} else {
			status["status"] = "loading"
		}
		if a.archive != nil {
			id, err := a.archive.LastSnapshotID(c.UserContext())
			if err != nil {
				log.Warn().Err(err).Msg("reading archived snapshot id")
			} else if id != "" {
				status["archivedSnapshot"] = id
			}
		}
		return c.JSON(status)
	}
}

func newFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "macro-heatmap",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	return app
}
