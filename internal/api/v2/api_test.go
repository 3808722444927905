package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirushanth-G/transformer-monitoring/internal/analysis"
	"github.com/Kirushanth-G/transformer-monitoring/internal/annotation"
	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/imagestore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/visionclient"
)

const visionBaseURL = "http://vision.test"

type apiFixture struct {
	echo  *echo.Echo
	store datastore.Interface
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	settings := &conf.Settings{}
	settings.Vision = conf.VisionSettings{
		BaseURL:       visionBaseURL,
		Timeout:       5 * time.Second,
		HealthTimeout: time.Second,
		InfoTimeout:   time.Second,
		MaxRetries:    0,
		RetryDelay:    5 * time.Millisecond,
		MaxConcurrent: 2,
		Sensitivity:   50,
		Device:        -1,
		InputSize:     640,
	}
	settings.Storage.PublicBaseURL = "http://storage.test"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	vision := visionclient.New(settings)
	httpmock.ActivateNonDefault(vision.Transport().HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	images := imagestore.New(store, settings)
	orchestrator := analysis.New(settings, store, vision, images)
	annotations := annotation.New(store)

	e := echo.New()
	New(e, settings, store, orchestrator, annotations, vision, nil)

	return &apiFixture{echo: e, store: store}
}

func (f *apiFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seedAnalysis(t *testing.T) *datastore.ThermalAnalysis {
	t.Helper()
	record := &datastore.ThermalAnalysis{
		MaintenanceImageID: 1,
		AnalysisTimestamp:  time.Now(),
		OverallAssessment:  datastore.AssessmentWarning,
		AnomalyScore:       0.6,
		SensitivityPct:     50,
		Detections: []datastore.AnomalyDetection{
			{
				X: 10, Y: 20, Width: 30, Height: 40,
				Label: "Hotspot", Confidence: 0.9, Area: 1200,
				DetectionSource:  datastore.SourceAI,
				AnnotationStatus: datastore.StatusUnverified,
			},
		},
	}
	require.NoError(t, f.store.SaveAnalysis(record))
	return record
}

func TestGetAnalysisNotFoundMapsTo404(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v2/analysis/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestGetAnalysisInvalidIDMapsTo400(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v2/analysis/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysisValidationFailureMapsTo400(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v2/analysis", `{"maintenance_image_ref": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysisUpstreamDownMapsTo503(t *testing.T) {
	f := newAPIFixture(t)
	// No responder: every call to the vision service fails at transport level

	rec := f.request(t, http.MethodPost, "/api/v2/analysis",
		`{"maintenance_image_ref": "http://storage.test/maintenance.jpg"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunAnalysisReturnsPersistedRecord(t *testing.T) {
	f := newAPIFixture(t)
	httpmock.RegisterResponder(http.MethodPost, visionBaseURL+"/analyze",
		httpmock.NewStringResponder(http.StatusOK,
			`{"overall_assessment": "warning", "anomaly_score": 0.7, "detections": [
				{"x": 1, "y": 2, "width": 3, "height": 4, "label": "Hotspot", "confidence": 0.9}
			]}`))

	rec := f.request(t, http.MethodPost, "/api/v2/analysis",
		`{"maintenance_image_ref": "http://storage.test/maintenance.jpg", "created_by": "inspector-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result datastore.ThermalAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotZero(t, result.ID)
	assert.Equal(t, datastore.AssessmentWarning, result.OverallAssessment)
	assert.Len(t, result.Detections, 1)
}

func TestAsyncAnalysisLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	httpmock.RegisterResponder(http.MethodPost, visionBaseURL+"/analyze",
		httpmock.NewStringResponder(http.StatusOK,
			`{"overall_assessment": "normal", "anomaly_score": 0.1, "detections": []}`))

	rec := f.request(t, http.MethodPost, "/api/v2/analysis/async",
		`{"maintenance_image_ref": "http://storage.test/maintenance.jpg"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.TaskID)

	// Poll until the task settles
	deadline := time.Now().Add(5 * time.Second)
	var polled TaskResponse
	for time.Now().Before(deadline) {
		rec = f.request(t, http.MethodGet, "/api/v2/analysis/tasks/"+submitted.TaskID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &polled))
		if polled.Status == string(analysis.TaskCompleted) || polled.Status == string(analysis.TaskFailed) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, string(analysis.TaskCompleted), polled.Status)
	require.NotNil(t, polled.Analysis)
	assert.NotZero(t, polled.Analysis.ID)
}

func TestGetUnknownTaskMapsTo404(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v2/analysis/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnalysesWithFilter(t *testing.T) {
	f := newAPIFixture(t)
	f.seedAnalysis(t)

	rec := f.request(t, http.MethodGet, "/api/v2/analysis?assessment=WARNING", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Analyses, 1)

	rec = f.request(t, http.MethodGet, "/api/v2/analysis?assessment=CRITICAL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Analyses)
}

func TestDeleteAnalysis(t *testing.T) {
	f := newAPIFixture(t)
	record := f.seedAnalysis(t)

	rec := f.request(t, http.MethodDelete, "/api/v2/analysis/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := f.store.GetAnalysis(record.ID)
	assert.Error(t, err)
}

func TestDetectionAnnotationLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	record := f.seedAnalysis(t)

	// Add a missed detection
	rec := f.request(t, http.MethodPost, "/api/v2/detections",
		`{"analysis_id": 1, "x": 5, "y": 5, "width": 10, "height": 20, "label": "Missed hotspot", "reviewer": "inspector-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var added datastore.AnomalyDetection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, datastore.SourceHuman, added.DetectionSource)
	assert.Equal(t, datastore.StatusAdded, added.AnnotationStatus)
	assert.Equal(t, 200, added.Area)

	// Edit the AI detection; the original geometry is captured
	aiID := record.Detections[0].ID
	rec = f.request(t, http.MethodPut, "/api/v2/detections/1",
		`{"x": 99, "reviewer": "inspector-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var edited datastore.AnomalyDetection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	assert.Equal(t, aiID, edited.ID)
	assert.Equal(t, 99, edited.X)
	assert.Equal(t, datastore.StatusEdited, edited.AnnotationStatus)
	require.NotNil(t, edited.OriginalAIPrediction)

	// Confirm it
	rec = f.request(t, http.MethodPost, "/api/v2/detections/1/confirm",
		`{"reviewer": "inspector-2", "comments": "verified"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Soft-delete the human-added one
	rec = f.request(t, http.MethodDelete, "/api/v2/detections/2", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Default listing hides the deleted row
	rec = f.request(t, http.MethodGet, "/api/v2/analysis/1/detections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []datastore.AnomalyDetection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &visible))
	assert.Len(t, visible, 1)

	rec = f.request(t, http.MethodGet, "/api/v2/analysis/1/detections?include_deleted=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []datastore.AnomalyDetection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestVisionHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	httpmock.RegisterResponder(http.MethodGet, visionBaseURL+"/health",
		httpmock.NewStringResponder(http.StatusOK, `{"status": "healthy"}`))

	rec := f.request(t, http.MethodGet, "/api/v2/vision/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
}

func TestVisionHealthEndpointWhenDown(t *testing.T) {
	f := newAPIFixture(t)
	// No responder: the probe fails but the endpoint still answers 200

	rec := f.request(t, http.MethodGet, "/api/v2/vision/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}

func TestVisionInfoEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	httpmock.RegisterResponder(http.MethodGet, visionBaseURL+"/info",
		httpmock.NewStringResponder(http.StatusOK, `{"model": "thermal-v2"}`))

	rec := f.request(t, http.MethodGet, "/api/v2/vision/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "thermal-v2")
}
