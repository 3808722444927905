// types.go: request and response payloads for the vision analysis service
package visionclient

// AnalysisCall is the outbound request payload for the /analyze endpoint.
// Field names follow the upstream service's wire contract.
type AnalysisCall struct {
	MaintenanceImageURL string         `json:"maintenance_image_path"`
	BaselineImageURL    *string        `json:"baseline_image_path,omitempty"`
	ProcessingDevice    int            `json:"processing_device"`
	InputImageSize      int            `json:"input_image_size"`
	UseHalfPrecision    bool           `json:"use_half_precision"`
	WebResponseFormat   bool           `json:"web_response_format"`
	SensitivityPct      int            `json:"sensitivity_percentage"`
	ConfigOverrides     map[string]any `json:"config_overrides,omitempty"`
}

// RawDetection is one detection object as the upstream service reports it.
// All fields are pointers because the upstream contract is loose; missing
// values are defaulted during normalization, not rejected.
type RawDetection struct {
	X                  *int     `json:"x"`
	Y                  *int     `json:"y"`
	Width              *int     `json:"width"`
	Height             *int     `json:"height"`
	Label              *string  `json:"label"`
	Confidence         *float64 `json:"confidence"`
	Area               *int     `json:"area"`
	IsCritical         *bool    `json:"is_critical"`
	SeverityLevel      *string  `json:"severity_level"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
}

// ImageDimensions reports the analyzed image size.
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result statuses. A Result with StatusError is still structurally valid;
// it carries zero detections and a reason in Message.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the normalized outcome of an analysis call. Callers always
// receive a structurally valid Result or an explicit transport error,
// never a parse failure.
type Result struct {
	Status            string           `json:"status"`
	OverallAssessment string           `json:"overall_assessment"`
	AnomalyScore      float64          `json:"anomaly_score"`
	Detections        []RawDetection   `json:"detections"`
	DetectionCount    int              `json:"detection_count"`
	ImageDimensions   *ImageDimensions `json:"image_dimensions,omitempty"`
	APIVersion        string           `json:"api_version,omitempty"`
	ProcessingTimeMs  int              `json:"processing_time_ms"`
	Message           string           `json:"message,omitempty"`
}
