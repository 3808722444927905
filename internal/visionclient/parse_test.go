package visionclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseObjectShape(t *testing.T) {
	body := `{
		"overall_assessment": "warning",
		"anomaly_score": 0.73,
		"detections": [
			{"x": 10, "y": 20, "width": 30, "height": 40, "label": "Hotspot", "confidence": 0.9},
			{"x": 50, "y": 60, "width": 10, "height": 10, "label": "Overload", "confidence": 0.95}
		],
		"image_dimensions": {"width": 640, "height": 480},
		"api_version": "1.2.0"
	}`

	result, shape := parseResponse([]byte(body))

	require.NotNil(t, result)
	assert.Equal(t, shapeObject, shape)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "warning", result.OverallAssessment)
	assert.InDelta(t, 0.73, result.AnomalyScore, 0.0001)
	assert.Equal(t, 2, result.DetectionCount)
	require.Len(t, result.Detections, 2)
	assert.Equal(t, "Hotspot", *result.Detections[0].Label)
	require.NotNil(t, result.ImageDimensions)
	assert.Equal(t, 640, result.ImageDimensions.Width)
	assert.Equal(t, "1.2.0", result.APIVersion)
}

func TestParseResponseKeyVariants(t *testing.T) {
	body := `{"assessment": "critical", "score": 0.91, "detections": []}`

	result, shape := parseResponse([]byte(body))

	assert.Equal(t, shapeKeyVariant, shape)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "critical", result.OverallAssessment)
	assert.InDelta(t, 0.91, result.AnomalyScore, 0.0001)
	assert.Equal(t, 0, result.DetectionCount)
}

func TestParseResponseEmptyArray(t *testing.T) {
	result, shape := parseResponse([]byte(`[]`))

	assert.Equal(t, shapeEmptyArray, shape)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "normal", result.OverallAssessment)
	assert.Zero(t, result.AnomalyScore)
	assert.Empty(t, result.Detections)
}

func TestParseResponseBareDetectionArray(t *testing.T) {
	body := `[
		{"x": 1, "y": 2, "width": 3, "height": 4, "label": "Hotspot", "confidence": 0.8},
		{"x": 5, "y": 6, "width": 7, "height": 8, "label": "Faulty", "confidence": 0.6}
	]`

	result, shape := parseResponse([]byte(body))

	assert.Equal(t, shapeArray, shape)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "warning", result.OverallAssessment)
	assert.InDelta(t, 0.5, result.AnomalyScore, 0.0001)
	assert.Equal(t, 2, result.DetectionCount)
}

func TestParseResponseWrappedObjectInArray(t *testing.T) {
	body := `[{"overall_assessment": "normal", "anomaly_score": 0.1, "detections": []}]`

	result, _ := parseResponse([]byte(body))

	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "normal", result.OverallAssessment)
	assert.InDelta(t, 0.1, result.AnomalyScore, 0.0001)
}

func TestParseResponseGarbageDegrades(t *testing.T) {
	for _, body := range []string{
		"not json at all",
		`{"overall_assessment": `,
		"",
		"   ",
	} {
		result, shape := parseResponse([]byte(body))

		require.NotNil(t, result, "input %q", body)
		assert.Equal(t, shapeUnrecoverable, shape, "input %q", body)
		assert.Equal(t, StatusError, result.Status, "input %q", body)
		assert.Equal(t, "error", result.OverallAssessment, "input %q", body)
		assert.Empty(t, result.Detections, "input %q", body)
		assert.NotEmpty(t, result.Message, "input %q", body)
	}
}

func TestParseResponseMalformedDetectionSkipped(t *testing.T) {
	body := `{
		"overall_assessment": "warning",
		"anomaly_score": 0.5,
		"detections": [
			{"x": 1, "y": 2, "width": 3, "height": 4, "label": "Hotspot", "confidence": 0.8},
			"not an object",
			{"x": 5, "y": 6, "width": 7, "height": 8, "label": "Faulty", "confidence": 0.6}
		]
	}`

	result, _ := parseResponse([]byte(body))

	assert.Equal(t, StatusOK, result.Status)
	assert.Len(t, result.Detections, 2)
	assert.Equal(t, 2, result.DetectionCount)
}
