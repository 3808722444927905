// Package visionclient provides a resilient client for the external
// thermal vision analysis service.
package visionclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"github.com/Kirushanth-G/transformer-monitoring/internal/httpclient"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
)

const (
	analyzePath = "/analyze"
	healthPath  = "/health"
	infoPath    = "/info"

	// maxResponseSize caps how much of an upstream body is read.
	maxResponseSize = 32 << 20 // 32 MB
)

// Package-level file logger for vision service traffic.
var (
	serviceLogger   *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	logger, _, err := logging.NewFileLogger("logs/vision.log", "vision", serviceLevelVar)
	if err != nil || logger == nil {
		serviceLogger = slog.Default().With("service", "vision")
		return
	}
	serviceLogger = logger
}

// Client calls the external vision analysis service with timeout and retry
// handling. Safe for concurrent use.
type Client struct {
	settings conf.VisionSettings
	baseURL  string
	http     *httpclient.Client
	debug    bool
}

// New creates a vision service client from the given settings.
func New(settings *conf.Settings) *Client {
	transport := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Vision.Timeout,
	})
	return &Client{
		settings: settings.Vision,
		baseURL:  strings.TrimRight(settings.Vision.BaseURL, "/"),
		http:     transport,
		debug:    settings.Debug,
	}
}

// Transport returns the underlying HTTP client, used for attaching
// observability hooks.
func (c *Client) Transport() *httpclient.Client {
	return c.http
}

// Analyze submits an analysis request and returns a normalized Result.
//
// The result is always structurally valid when err is nil: unparseable
// upstream bodies degrade to an error-status result with zero detections.
// An error is returned only when the transport failed after all retries or
// the service answered with an error status code.
func (c *Client) Analyze(ctx context.Context, call *AnalysisCall) (*Result, error) {
	start := time.Now()

	body, status, err := c.postWithRetry(ctx, c.baseURL+analyzePath, call)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, errors.Newf("vision service returned status %d: %s", status, truncate(body, 200)).
			Category(categoryForStatus(status)).
			Component("visionclient").
			Context("status_code", status).
			Build()
	}

	result, shape := parseResponse(body)
	result.ProcessingTimeMs = int(time.Since(start).Milliseconds())

	if shape == shapeUnrecoverable {
		serviceLogger.Warn("Unparseable analysis response, degrading to error result",
			"message", result.Message,
			"body_bytes", len(body))
	} else if c.debug {
		serviceLogger.Debug("Analysis completed",
			"assessment", result.OverallAssessment,
			"detections", result.DetectionCount,
			"processing_ms", result.ProcessingTimeMs)
	}

	return result, nil
}

// HealthCheck probes the service health endpoint with a short timeout.
// It reports availability and never returns an error; an unreachable or
// unhealthy service is simply not available.
func (c *Client) HealthCheck(ctx context.Context) bool {
	timeout := c.settings.HealthTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.Get(ctx, c.baseURL+healthPath)
	if err != nil {
		serviceLogger.Debug("Health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	return resp.StatusCode == http.StatusOK
}

// ServiceInfo fetches the service's self-description, typically model and
// version metadata, as a raw JSON string.
func (c *Client) ServiceInfo(ctx context.Context) (string, error) {
	timeout := c.settings.InfoTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.Get(ctx, c.baseURL+infoPath)
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			Component("visionclient").
			Context("operation", "service-info").
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			Component("visionclient").
			Context("operation", "service-info").
			Build()
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("vision service info returned status %d", resp.StatusCode).
			Category(categoryForStatus(resp.StatusCode)).
			Component("visionclient").
			Build()
	}

	if !json.Valid(body) {
		return "", errors.Newf("vision service info is not valid JSON").
			Category(errors.CategoryParsing).
			Component("visionclient").
			Build()
	}
	return string(body), nil
}

// postWithRetry posts the payload, retrying transport failures and server
// errors with exponential backoff. Client errors (4xx) are never retried.
func (c *Client) postWithRetry(ctx context.Context, url string, payload any) (body []byte, status int, err error) {
	maxRetries := c.settings.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := c.settings.RetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			serviceLogger.Info("Retrying vision service request",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, 0, exhaustedError(ctx.Err(), attempt, time.Since(start))
			case <-time.After(delay):
			}
		}

		body, status, lastErr = c.postOnce(ctx, url, payload)
		if lastErr == nil && status < 500 {
			return body, status, nil
		}
		if lastErr == nil {
			// 5xx answer, retry with the status as the recorded cause
			lastErr = fmt.Errorf("vision service returned status %d", status)
		}
		if ctx.Err() != nil {
			return nil, 0, exhaustedError(ctx.Err(), attempt+1, time.Since(start))
		}
	}

	return nil, 0, exhaustedError(lastErr, maxRetries+1, time.Since(start))
}

func (c *Client) postOnce(ctx context.Context, url string, payload any) ([]byte, int, error) {
	resp, err := c.http.Post(ctx, url, "application/json", payload)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func exhaustedError(cause error, attempts int, elapsed time.Duration) error {
	return errors.New(cause).
		Category(errors.CategoryNetwork).
		Component("visionclient").
		Timing("analyze", elapsed).
		Context("attempts", attempts).
		Build()
}

func categoryForStatus(status int) errors.ErrorCategory {
	if status >= 400 && status < 500 {
		return errors.CategoryValidation
	}
	return errors.CategoryNetwork
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
