// Package api implements the v2 HTTP API for the thermal analysis
// pipeline on top of echo.
package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Kirushanth-G/transformer-monitoring/internal/analysis"
	"github.com/Kirushanth-G/transformer-monitoring/internal/annotation"
	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
	"github.com/Kirushanth-G/transformer-monitoring/internal/observability"
	"github.com/Kirushanth-G/transformer-monitoring/internal/visionclient"
)

// Controller handles the v2 API routes.
type Controller struct {
	Echo         *echo.Echo
	Group        *echo.Group
	Settings     *conf.Settings
	DS           datastore.Interface
	Orchestrator *analysis.Orchestrator
	Annotations  *annotation.Service
	Vision       *visionclient.Client
	Metrics      *observability.Metrics

	logger *slog.Logger
}

// New creates the API controller and registers all routes on e.
func New(e *echo.Echo, settings *conf.Settings, ds datastore.Interface,
	orchestrator *analysis.Orchestrator, annotations *annotation.Service,
	vision *visionclient.Client, metrics *observability.Metrics) *Controller {

	logger := newAPILogger(settings)

	c := &Controller{
		Echo:         e,
		Group:        e.Group("/api/v2"),
		Settings:     settings,
		DS:           ds,
		Orchestrator: orchestrator,
		Annotations:  annotations,
		Vision:       vision,
		Metrics:      metrics,
		logger:       logger,
	}

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.initAnalysisRoutes()
	c.initDetectionRoutes()
	c.initVisionRoutes()

	if c.Metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.Metrics.Handler()))
	}
}

// recordStoreOp counts a record store operation when metrics are enabled.
func (c *Controller) recordStoreOp(operation string, err error) {
	if c.Metrics != nil {
		c.Metrics.Datastore.RecordOperation(operation, err)
	}
}

// newAPILogger prefers a rotating file logger at the configured log path
// and falls back to the shared structured logger.
func newAPILogger(settings *conf.Settings) *slog.Logger {
	if settings.WebServer.LogPath != "" {
		logger, _, err := logging.NewFileLogger(settings.WebServer.LogPath, "api", slog.LevelInfo)
		if err == nil && logger != nil {
			return logger
		}
	}
	if logger := logging.ForService("api"); logger != nil {
		return logger
	}
	return slog.Default()
}

// ErrorResponse is the standard JSON error payload.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError maps an error to an HTTP response based on its category and
// logs it with a correlation id for cross-referencing.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	status := statusForError(err)
	correlationID := uuid.New().String()[:8]

	c.logger.Error("API error",
		"correlation_id", correlationID,
		"path", ctx.Path(),
		"status", status,
		"category", string(errors.CategoryOf(err)),
		"error", err,
	)

	return ctx.JSON(status, &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          status,
		CorrelationID: correlationID,
	})
}

// statusForError maps error categories to HTTP status codes: validation
// failures are the client's fault, exhausted upstream transport means the
// vision service is unavailable, everything else is internal.
func statusForError(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNetwork, errors.CategoryTimeout:
		return http.StatusServiceUnavailable
	case errors.CategoryImageResolve:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
