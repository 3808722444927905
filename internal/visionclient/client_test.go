package visionclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
)

const testBaseURL = "http://vision.test"

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Vision = conf.VisionSettings{
		BaseURL:       testBaseURL,
		Timeout:       5 * time.Second,
		HealthTimeout: time.Second,
		InfoTimeout:   time.Second,
		MaxRetries:    2,
		RetryDelay:    5 * time.Millisecond,
		MaxConcurrent: 2,
		Sensitivity:   50,
		Device:        -1,
		InputSize:     640,
	}
	return settings
}

func mockedClient(t *testing.T) *Client {
	t.Helper()
	client := New(testSettings())
	httpmock.ActivateNonDefault(client.Transport().HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func testCall() *AnalysisCall {
	return &AnalysisCall{
		MaintenanceImageURL: "http://images.test/maintenance.jpg",
		ProcessingDevice:    -1,
		InputImageSize:      640,
		WebResponseFormat:   true,
		SensitivityPct:      50,
	}
}

func TestAnalyzeBareArrayResponse(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		httpmock.NewStringResponder(http.StatusOK, `[
			{"x": 1, "y": 2, "width": 3, "height": 4, "label": "Hotspot", "confidence": 0.8},
			{"x": 5, "y": 6, "width": 7, "height": 8, "label": "Overload", "confidence": 0.9}
		]`))

	result, err := client.Analyze(context.Background(), testCall())

	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 2, result.DetectionCount)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, 0)
}

func TestAnalyzeGarbageResponseDegrades(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		httpmock.NewStringResponder(http.StatusOK, "<html>definitely not json</html>"))

	result, err := client.Analyze(context.Background(), testCall())

	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "error", result.OverallAssessment)
	assert.Empty(t, result.Detections)
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	client := mockedClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "boom"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"overall_assessment": "normal", "anomaly_score": 0.1, "detections": []}`), nil
		})

	result, err := client.Analyze(context.Background(), testCall())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "normal", result.OverallAssessment)
}

func TestAnalyzeDoesNotRetryClientErrors(t *testing.T) {
	client := mockedClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		func(*http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusBadRequest, `{"detail": "bad payload"}`), nil
		})

	result, err := client.Analyze(context.Background(), testCall())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	result, err := client.Analyze(context.Background(), testCall())

	require.Error(t, err)
	assert.Nil(t, result)
	// Initial attempt plus MaxRetries
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))

	// The error carries how long and how many attempts the exchange took
	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	errCtx := enhanced.GetContext()
	assert.Equal(t, "analyze", errCtx["operation"])
	assert.Equal(t, 3, errCtx["attempts"])
	assert.Contains(t, errCtx, "duration_ms")
}

func TestAnalyzeSendsWireFields(t *testing.T) {
	client := mockedClient(t)

	var received map[string]any
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/analyze",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"overall_assessment": "normal", "detections": []}`), nil
		})

	call := testCall()
	baseline := "http://images.test/baseline.jpg"
	call.BaselineImageURL = &baseline

	_, err := client.Analyze(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "http://images.test/maintenance.jpg", received["maintenance_image_path"])
	assert.Equal(t, baseline, received["baseline_image_path"])
	assert.Equal(t, true, received["web_response_format"])
	assert.Equal(t, float64(50), received["sensitivity_percentage"])
}

func TestHealthCheck(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/health",
		httpmock.NewStringResponder(http.StatusOK, `{"status": "healthy"}`))

	assert.True(t, client.HealthCheck(context.Background()))
}

func TestHealthCheckUnreachable(t *testing.T) {
	client := mockedClient(t)
	// No responder registered: the transport fails fast

	assert.False(t, client.HealthCheck(context.Background()))
}

func TestHealthCheckUnhealthyStatus(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/health",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "starting"))

	assert.False(t, client.HealthCheck(context.Background()))
}

func TestServiceInfo(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/info",
		httpmock.NewStringResponder(http.StatusOK, `{"model": "thermal-v2", "version": "1.2.0"}`))

	info, err := client.ServiceInfo(context.Background())

	require.NoError(t, err)
	assert.Contains(t, info, "thermal-v2")
}

func TestServiceInfoRejectsInvalidJSON(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/info",
		httpmock.NewStringResponder(http.StatusOK, "plain text"))

	_, err := client.ServiceInfo(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParsing))
}
