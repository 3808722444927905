// normalize.go: conversion of raw upstream detections into the internal
// detection schema.
package visionclient

import (
	"strings"

	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
)

// SeverityPolicy derives criticality and severity for a detection from its
// label and confidence. It is a named, swappable policy so the heuristic
// can be replaced or unit-tested independently.
type SeverityPolicy func(label string, confidence float64) (critical bool, severity datastore.SeverityLevel)

// Labels whose presence marks a detection as critical, matched as
// case-insensitive substrings.
var criticalLabelMarkers = []string{"critical", "overload", "loose joint", "severe"}

// DefaultSeverityPolicy is the built-in heuristic: marker labels are
// critical; severity is CRITICAL for critical detections above 0.8
// confidence, HIGH for other critical detections, MEDIUM above 0.7
// confidence, LOW otherwise.
func DefaultSeverityPolicy(label string, confidence float64) (bool, datastore.SeverityLevel) {
	critical := isCriticalLabel(label)
	switch {
	case critical && confidence > 0.8:
		return true, datastore.SeverityCritical
	case critical:
		return true, datastore.SeverityHigh
	case confidence > 0.7:
		return false, datastore.SeverityMedium
	default:
		return false, datastore.SeverityLow
	}
}

func isCriticalLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, marker := range criticalLabelMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NormalizeDetections converts raw upstream detections into detection rows.
// Missing numeric fields are zero-defaulted per detection so that one
// malformed entry never fails the batch. The area is recomputed from the
// geometry whenever both width and height were reported; otherwise the
// upstream area is passed through. A nil policy falls back to
// DefaultSeverityPolicy.
func NormalizeDetections(raw []RawDetection, policy SeverityPolicy) []datastore.AnomalyDetection {
	if policy == nil {
		policy = DefaultSeverityPolicy
	}

	detections := make([]datastore.AnomalyDetection, 0, len(raw))
	for i := range raw {
		detections = append(detections, normalizeDetection(&raw[i], policy))
	}
	return detections
}

func normalizeDetection(raw *RawDetection, policy SeverityPolicy) datastore.AnomalyDetection {
	detection := datastore.AnomalyDetection{
		X:                intOrZero(raw.X),
		Y:                intOrZero(raw.Y),
		Width:            intOrZero(raw.Width),
		Height:           intOrZero(raw.Height),
		Label:            "Unknown",
		Confidence:       floatOrZero(raw.Confidence),
		DetectionSource:  datastore.SourceAI,
		AnnotationStatus: datastore.StatusUnverified,
	}
	if raw.Label != nil && *raw.Label != "" {
		detection.Label = *raw.Label
	}

	// Never trust the upstream area when it is recomputable
	if raw.Width != nil && raw.Height != nil {
		detection.Area = *raw.Width * *raw.Height
	} else {
		detection.Area = intOrZero(raw.Area)
	}

	critical, severity := policy(detection.Label, detection.Confidence)
	if raw.IsCritical != nil {
		critical = *raw.IsCritical
	}
	if raw.SeverityLevel != nil {
		if parsed, ok := parseSeverity(*raw.SeverityLevel); ok {
			severity = parsed
		}
	}
	detection.IsCritical = critical
	detection.SeverityLevel = severity

	if raw.TemperatureCelsius != nil {
		temp := *raw.TemperatureCelsius
		detection.TemperatureCelsius = &temp
	}

	return detection
}

func parseSeverity(s string) (datastore.SeverityLevel, bool) {
	switch datastore.SeverityLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case datastore.SeverityLow:
		return datastore.SeverityLow, true
	case datastore.SeverityMedium:
		return datastore.SeverityMedium, true
	case datastore.SeverityHigh:
		return datastore.SeverityHigh, true
	case datastore.SeverityCritical:
		return datastore.SeverityCritical, true
	default:
		return "", false
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
