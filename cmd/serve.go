// serve.go: the serve command wires the datastore, vision client,
// orchestrator and API server together and runs until interrupted.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Kirushanth-G/transformer-monitoring/internal/analysis"
	api "github.com/Kirushanth-G/transformer-monitoring/internal/api/v2"
	"github.com/Kirushanth-G/transformer-monitoring/internal/annotation"
	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/imagestore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
	"github.com/Kirushanth-G/transformer-monitoring/internal/observability"
	"github.com/Kirushanth-G/transformer-monitoring/internal/visionclient"
)

// ServeCommand creates the serve subcommand.
func ServeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServe(settings)
		},
	}
}

// RunServe starts all components and blocks until SIGINT/SIGTERM.
func RunServe(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("Failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	vision := visionclient.New(settings)
	defer vision.Transport().Close()
	metrics.Vision.InstrumentTransport(vision.Transport())

	images := imagestore.New(ds, settings)
	orchestrator := analysis.New(settings, ds, vision, images)
	annotations := annotation.New(ds)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Info("HTTP request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	api.New(e, settings, ds, orchestrator, annotations, vision, metrics)

	// Probe the vision service once at startup so operators see the
	// state immediately; an unavailable service is not fatal.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if vision.HealthCheck(probeCtx) {
		logging.Info("Vision service is available", "base_url", settings.Vision.BaseURL)
	} else {
		logging.Warn("Vision service is not reachable at startup", "base_url", settings.Vision.BaseURL)
	}
	probeCancel()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		logging.Info("Starting API server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case sig := <-quit:
		logging.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
