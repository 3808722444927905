// parse.go: normalization of the upstream response into a Result.
//
// The upstream response shape is not trusted to be stable. The ladder here
// accepts the documented object shape, a bare JSON array of detection-like
// objects, an empty array, and key-name variants, and degrades to an
// error-status Result when nothing matches. It never returns an error.
package visionclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// responseShape tags which variant of the upstream response was recognized.
type responseShape int

const (
	shapeObject responseShape = iota
	shapeArray
	shapeEmptyArray
	shapeKeyVariant
	shapeUnrecoverable
)

// parseResponse normalizes a raw upstream body into a Result.
func parseResponse(raw []byte) (*Result, responseShape) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fallbackResult("empty response body"), shapeUnrecoverable
	}
	if trimmed[0] == '[' {
		return parseArrayResponse(trimmed)
	}
	return parseObjectResponse(trimmed)
}

// parseObjectResponse handles the documented object shape and its key-name
// variants (assessment/score instead of overall_assessment/anomaly_score).
func parseObjectResponse(raw []byte) (*Result, responseShape) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fallbackResult(fmt.Sprintf("failed to parse response: %v", err)), shapeUnrecoverable
	}

	shape := shapeObject
	result := &Result{Status: StatusOK, OverallAssessment: "normal"}

	if v, ok := fields["overall_assessment"]; ok {
		decodeString(v, &result.OverallAssessment)
	} else if v, ok := fields["assessment"]; ok {
		decodeString(v, &result.OverallAssessment)
		shape = shapeKeyVariant
	}

	if v, ok := fields["anomaly_score"]; ok {
		decodeFloat(v, &result.AnomalyScore)
	} else if v, ok := fields["score"]; ok {
		decodeFloat(v, &result.AnomalyScore)
		shape = shapeKeyVariant
	}

	if v, ok := fields["detections"]; ok {
		result.Detections = decodeDetectionList(v)
	}
	result.DetectionCount = len(result.Detections)

	if v, ok := fields["image_dimensions"]; ok {
		var dims ImageDimensions
		if err := json.Unmarshal(v, &dims); err == nil {
			result.ImageDimensions = &dims
		}
	}
	if v, ok := fields["api_version"]; ok {
		decodeString(v, &result.APIVersion)
	}
	if v, ok := fields["message"]; ok {
		decodeString(v, &result.Message)
	}

	return result, shape
}

// parseArrayResponse handles bare-array replies: an empty array, an array
// wrapping the documented object, or an array of detection objects.
func parseArrayResponse(raw []byte) (*Result, responseShape) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fallbackResult(fmt.Sprintf("failed to parse array response: %v", err)), shapeUnrecoverable
	}

	if len(items) == 0 {
		return &Result{
			Status:            StatusOK,
			OverallAssessment: "normal",
			AnomalyScore:      0.0,
			Detections:        []RawDetection{},
			DetectionCount:    0,
		}, shapeEmptyArray
	}

	// Some upstream versions wrap the documented object in a single-element array
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(items[0], &probe); err == nil {
		if _, hasAssessment := probe["overall_assessment"]; hasAssessment {
			return parseObjectResponse(items[0])
		}
		if _, hasDetections := probe["detections"]; hasDetections {
			return parseObjectResponse(items[0])
		}
	}

	// Otherwise treat the array as a list of detection objects. Anomalies
	// were reported without an overall verdict, so assume a warning.
	detections := make([]RawDetection, 0, len(items))
	for _, item := range items {
		var detection RawDetection
		if err := json.Unmarshal(item, &detection); err != nil {
			continue
		}
		detections = append(detections, detection)
	}

	return &Result{
		Status:            StatusOK,
		OverallAssessment: "warning",
		AnomalyScore:      0.5,
		Detections:        detections,
		DetectionCount:    len(detections),
	}, shapeArray
}

// fallbackResult is returned when no recovery applies. It is a well-formed
// zero-detection result so callers never see a parse failure.
func fallbackResult(message string) *Result {
	return &Result{
		Status:            StatusError,
		OverallAssessment: "error",
		AnomalyScore:      0.0,
		Detections:        []RawDetection{},
		DetectionCount:    0,
		Message:           message,
	}
}

// decodeDetectionList parses a detections array element by element so that
// one malformed entry does not drop the rest.
func decodeDetectionList(raw json.RawMessage) []RawDetection {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []RawDetection{}
	}
	detections := make([]RawDetection, 0, len(items))
	for _, item := range items {
		var detection RawDetection
		if err := json.Unmarshal(item, &detection); err != nil {
			continue
		}
		detections = append(detections, detection)
	}
	return detections
}

func decodeString(raw json.RawMessage, dst *string) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
	}
}

func decodeFloat(raw json.RawMessage, dst *float64) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		*dst = f
	}
}
