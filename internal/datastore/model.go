// model.go this code defines the data model for the application
package datastore

import (
	"encoding/json"
	"time"
)

// AssessmentType is the overall verdict of a thermal analysis.
type AssessmentType string

const (
	AssessmentNormal   AssessmentType = "NORMAL"
	AssessmentWarning  AssessmentType = "WARNING"
	AssessmentCritical AssessmentType = "CRITICAL"
)

// SeverityLevel classifies a single anomaly detection.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "LOW"
	SeverityMedium   SeverityLevel = "MEDIUM"
	SeverityHigh     SeverityLevel = "HIGH"
	SeverityCritical SeverityLevel = "CRITICAL"
)

// DetectionSource records whether a detection came from the vision service
// or was added by an operator. Immutable once set at creation.
type DetectionSource string

const (
	SourceAI    DetectionSource = "AI"
	SourceHuman DetectionSource = "HUMAN"
)

// AnnotationStatus tracks the human review state of a detection.
type AnnotationStatus string

const (
	StatusUnverified AnnotationStatus = "UNVERIFIED" // not yet reviewed
	StatusConfirmed  AnnotationStatus = "CONFIRMED"  // human verified the AI was correct
	StatusAdded      AnnotationStatus = "ADDED"      // human added a box the AI missed
	StatusEdited     AnnotationStatus = "EDITED"     // human resized/moved/relabeled the box
	StatusDeleted    AnnotationStatus = "DELETED"    // human marked as false positive, soft delete
)

// ThermalAnalysis represents one vision service invocation against one
// maintenance image, optionally compared with a baseline image. It owns its
// detections and config entries; deleting an analysis cascades to both.
type ThermalAnalysis struct {
	ID                 uint `gorm:"primaryKey"`
	MaintenanceImageID uint `gorm:"index:idx_analyses_image;not null"`
	BaselineImageID    *uint
	AnalysisTimestamp  time.Time      `gorm:"index:idx_analyses_timestamp;not null"`
	OverallAssessment  AssessmentType `gorm:"type:varchar(20);index:idx_analyses_assessment;not null"`
	AnomalyScore       float64        `gorm:"not null"`
	SensitivityPct     int            `gorm:"not null;default:50"`
	ProcessingTimeMs   int
	ProcessingDevice   int  `gorm:"default:-1"`
	InputImageSize     int  `gorm:"default:640"`
	UseHalfPrecision   bool `gorm:"default:false"`
	APIVersion         string `gorm:"type:varchar(50)"`
	EquipmentID        *uint  `gorm:"index:idx_analyses_equipment"`
	InspectionID       *uint  `gorm:"index:idx_analyses_inspection"`
	CreatedBy          string `gorm:"type:varchar(100)"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Detections []AnomalyDetection `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE"`
	Configs    []AnalysisConfig   `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE"`
}

// AnomalyDetection is one bounding box within a ThermalAnalysis.
//
// Rows are never physically removed by operator actions; a DELETED status
// retires them from default listings while keeping them queryable for audit
// and retraining.
type AnomalyDetection struct {
	ID         uint `gorm:"primaryKey"`
	AnalysisID uint `gorm:"index:idx_detections_analysis;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:AnalysisID;references:ID"`

	X      int `gorm:"not null"`
	Y      int `gorm:"not null"`
	Width  int `gorm:"not null"`
	Height int `gorm:"not null"`

	Label              string          `gorm:"type:varchar(100);not null"`
	Confidence         float64         `gorm:"not null"`
	Area               int             `gorm:"not null"`
	IsCritical         bool            `gorm:"not null;default:false"`
	SeverityLevel      SeverityLevel   `gorm:"type:varchar(20)"`
	TemperatureCelsius *float64

	DetectionSource DetectionSource `gorm:"type:varchar(20);default:AI"`

	// OriginalAIPrediction preserves the first AI-produced geometry as a
	// JSON snapshot, e.g. {"x":10,"y":10,"width":50,"height":50}. Written
	// at most once, before the first human edit, never updated afterwards.
	// Always nil for HUMAN-sourced detections.
	OriginalAIPrediction *string `gorm:"column:original_ai_prediction;type:text"`

	AnnotationStatus AnnotationStatus `gorm:"type:varchar(20);index:idx_detections_status;default:UNVERIFIED"`
	UserComments     string           `gorm:"type:text"`
	ModifiedBy       string           `gorm:"type:varchar(100)"`
	ModifiedAt       *time.Time
	CreatedAt        time.Time
}

// Geometry is the bounding box subset of a detection used for snapshots.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GeometrySnapshot serializes the detection's current bounding box for the
// original prediction column.
func (d *AnomalyDetection) GeometrySnapshot() string {
	snapshot, err := json.Marshal(Geometry{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height})
	if err != nil {
		// Geometry contains only ints, Marshal cannot fail in practice
		return "{}"
	}
	return string(snapshot)
}

// AnalysisConfig stores one config override key/value applied to an
// analysis, kept for reproducibility.
type AnalysisConfig struct {
	ID          uint   `gorm:"primaryKey"`
	AnalysisID  uint   `gorm:"uniqueIndex:idx_configs_analysis_key;not null;constraint:OnDelete:CASCADE;foreignKey:AnalysisID;references:ID"`
	ConfigKey   string `gorm:"type:varchar(100);uniqueIndex:idx_configs_analysis_key;not null"`
	ConfigValue string `gorm:"type:text"`
	CreatedAt   time.Time
}

// InspectionImage is a maintenance image captured during an inspection.
// Owned by the storage subsystem; only the fields the analysis pipeline
// needs are modeled here.
type InspectionImage struct {
	ID           uint   `gorm:"primaryKey"`
	InspectionID *uint  `gorm:"index"`
	ImageURL     string `gorm:"type:text"` // full URL or storage object key
	CreatedAt    time.Time
}

// TransformerImage is a baseline image associated with a transformer.
type TransformerImage struct {
	ID            uint   `gorm:"primaryKey"`
	TransformerID *uint  `gorm:"index"`
	ImageURL      string `gorm:"type:text"` // full URL or storage object key
	CreatedAt     time.Time
}

// Inspection links maintenance images to the transformer under inspection.
type Inspection struct {
	ID            uint  `gorm:"primaryKey"`
	TransformerID *uint `gorm:"index"`
	CreatedAt     time.Time
}

// Transformer is the equipment an analysis can be linked to.
type Transformer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(100)"`
	CreatedAt time.Time
}
