// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"gorm.io/gorm"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
)

// Interface abstracts the underlying database implementation and defines the
// operations the analysis pipeline needs from the record store.
type Interface interface {
	Open() error
	Close() error

	// Analyses
	SaveAnalysis(analysis *ThermalAnalysis) error
	GetAnalysis(id uint) (ThermalAnalysis, error)
	DeleteAnalysis(id uint) error
	ListAnalyses(filter AnalysisFilter) ([]ThermalAnalysis, int64, error)
	LatestAnalysisForEquipment(equipmentID uint) (ThermalAnalysis, error)
	LatestAnalysisForInspection(inspectionID uint) (ThermalAnalysis, error)

	// Detections
	GetDetection(id uint) (AnomalyDetection, error)
	InsertDetection(detection *AnomalyDetection) error
	UpdateDetection(id uint, fields map[string]any) error
	ApplyDetectionEdit(id uint, fields map[string]any) (AnomalyDetection, error)
	ListDetections(analysisID uint, includeDeleted bool) ([]AnomalyDetection, error)

	// Image and equipment lookups for the orchestrator
	GetInspectionImage(id uint) (InspectionImage, error)
	GetTransformerImage(id uint) (TransformerImage, error)
	GetTransformerForImage(imageID uint) (*Transformer, error)
}

// AnalysisFilter narrows ListAnalyses results. Zero-valued fields are
// ignored; Limit <= 0 means no limit.
type AnalysisFilter struct {
	EquipmentID  *uint
	ImageID      *uint
	InspectionID *uint
	Assessment   AssessmentType
	CriticalOnly bool
	Limit        int
	Offset       int
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new store instance based on the provided configuration.
// Returns nil if no database output is enabled; conf validation prevents
// that in practice.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}
