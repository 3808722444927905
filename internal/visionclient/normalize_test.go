package visionclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultSeverityPolicy(t *testing.T) {
	tests := []struct {
		name         string
		label        string
		confidence   float64
		wantCritical bool
		wantSeverity datastore.SeverityLevel
	}{
		{"critical label high confidence", "Critical Hotspot", 0.9, true, datastore.SeverityCritical},
		{"critical label boundary confidence", "Critical Hotspot", 0.8, true, datastore.SeverityHigh},
		{"overload marker", "Overload Detected", 0.5, true, datastore.SeverityHigh},
		{"loose joint marker", "Loose Joint", 0.85, true, datastore.SeverityCritical},
		{"severe marker mixed case", "SEVERE fault", 0.3, true, datastore.SeverityHigh},
		{"benign high confidence", "Hotspot", 0.75, false, datastore.SeverityMedium},
		{"benign boundary confidence", "Hotspot", 0.7, false, datastore.SeverityLow},
		{"benign low confidence", "Warm area", 0.2, false, datastore.SeverityLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			critical, severity := DefaultSeverityPolicy(tc.label, tc.confidence)
			assert.Equal(t, tc.wantCritical, critical)
			assert.Equal(t, tc.wantSeverity, severity)
		})
	}
}

func TestNormalizeDetectionsDefaults(t *testing.T) {
	raw := []RawDetection{
		{}, // everything missing
		{
			X: ptr(10), Y: ptr(20), Width: ptr(30), Height: ptr(40),
			Label: ptr("Hotspot"), Confidence: ptr(0.9),
		},
	}

	detections := NormalizeDetections(raw, nil)
	require.Len(t, detections, 2)

	empty := detections[0]
	assert.Zero(t, empty.X)
	assert.Zero(t, empty.Width)
	assert.Equal(t, "Unknown", empty.Label)
	assert.Zero(t, empty.Confidence)
	assert.Zero(t, empty.Area)
	assert.Equal(t, datastore.SourceAI, empty.DetectionSource)
	assert.Equal(t, datastore.StatusUnverified, empty.AnnotationStatus)
	assert.False(t, empty.IsCritical)
	assert.Equal(t, datastore.SeverityLow, empty.SeverityLevel)

	full := detections[1]
	assert.Equal(t, 10, full.X)
	assert.Equal(t, "Hotspot", full.Label)
	assert.Equal(t, 30*40, full.Area)
	assert.Equal(t, datastore.SeverityMedium, full.SeverityLevel)
}

func TestNormalizeDetectionsAreaRecomputed(t *testing.T) {
	raw := []RawDetection{
		// Upstream area contradicts the geometry; geometry wins
		{Width: ptr(10), Height: ptr(10), Area: ptr(9999), Label: ptr("Hotspot"), Confidence: ptr(0.5)},
		// No geometry; upstream area passes through
		{Area: ptr(250), Label: ptr("Hotspot"), Confidence: ptr(0.5)},
	}

	detections := NormalizeDetections(raw, nil)
	require.Len(t, detections, 2)
	assert.Equal(t, 100, detections[0].Area)
	assert.Equal(t, 250, detections[1].Area)
}

func TestNormalizeDetectionsUpstreamSeverityWins(t *testing.T) {
	raw := []RawDetection{
		{
			Label: ptr("Hotspot"), Confidence: ptr(0.2),
			IsCritical: ptr(true), SeverityLevel: ptr("high"),
		},
		{
			// Unparseable upstream severity falls back to the policy
			Label: ptr("Hotspot"), Confidence: ptr(0.2),
			SeverityLevel: ptr("bogus"),
		},
	}

	detections := NormalizeDetections(raw, nil)
	require.Len(t, detections, 2)
	assert.True(t, detections[0].IsCritical)
	assert.Equal(t, datastore.SeverityHigh, detections[0].SeverityLevel)
	assert.Equal(t, datastore.SeverityLow, detections[1].SeverityLevel)
}

func TestNormalizeDetectionsCustomPolicy(t *testing.T) {
	alwaysCritical := func(string, float64) (bool, datastore.SeverityLevel) {
		return true, datastore.SeverityCritical
	}

	detections := NormalizeDetections([]RawDetection{{Label: ptr("Anything")}}, alwaysCritical)
	require.Len(t, detections, 1)
	assert.True(t, detections[0].IsCritical)
	assert.Equal(t, datastore.SeverityCritical, detections[0].SeverityLevel)
}

func TestNormalizeDetectionsTemperatureCopied(t *testing.T) {
	raw := []RawDetection{{Label: ptr("Hotspot"), TemperatureCelsius: ptr(84.5)}}

	detections := NormalizeDetections(raw, nil)
	require.Len(t, detections, 1)
	require.NotNil(t, detections[0].TemperatureCelsius)
	assert.InDelta(t, 84.5, *detections[0].TemperatureCelsius, 0.0001)
}
