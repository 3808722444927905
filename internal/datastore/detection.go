// detection.go: row-level operations for anomaly detections
package datastore

import (
	"fmt"

	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"gorm.io/gorm"
)

// GetDetection retrieves a single detection by ID.
func (ds *DataStore) GetDetection(id uint) (AnomalyDetection, error) {
	var detection AnomalyDetection
	if err := ds.DB.First(&detection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AnomalyDetection{}, errors.Newf("anomaly detection not found with ID: %d", id).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return AnomalyDetection{}, fmt.Errorf("getting detection with ID %d: %w", id, err)
	}
	return detection, nil
}

// InsertDetection stores a new detection row. The parent analysis must
// exist; a foreign key violation is surfaced as a database error.
func (ds *DataStore) InsertDetection(detection *AnomalyDetection) error {
	if err := ds.DB.Create(detection).Error; err != nil {
		return errors.New(fmt.Errorf("saving detection: %w", err)).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Context("analysis_id", detection.AnalysisID).
			Build()
	}
	return nil
}

// UpdateDetection applies the given column updates to a single detection
// row in one UPDATE statement.
func (ds *DataStore) UpdateDetection(id uint, fields map[string]any) error {
	result := ds.DB.Model(&AnomalyDetection{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update detection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("anomaly detection not found with ID: %d", id).
			Category(errors.CategoryNotFound).
			Component("datastore").
			Build()
	}
	return nil
}

// ApplyDetectionEdit applies operator changes to a detection as one
// transaction. For AI-sourced rows whose original prediction has not been
// captured yet, the pre-edit geometry is snapshotted first; the snapshot
// column is guarded by an IS NULL predicate so the first writer wins and
// the snapshot is never overwritten, even under concurrent edits of the
// same row. Field updates themselves are last-write-wins.
func (ds *DataStore) ApplyDetectionEdit(id uint, fields map[string]any) (AnomalyDetection, error) {
	var updated AnomalyDetection

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var current AnomalyDetection
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Newf("anomaly detection not found with ID: %d", id).
					Category(errors.CategoryNotFound).
					Component("datastore").
					Build()
			}
			return fmt.Errorf("reading detection %d: %w", id, err)
		}

		if current.DetectionSource == SourceAI && current.OriginalAIPrediction == nil {
			snapshot := current.GeometrySnapshot()
			err := tx.Model(&AnomalyDetection{}).
				Where("id = ? AND original_ai_prediction IS NULL", id).
				Update("original_ai_prediction", snapshot).Error
			if err != nil {
				return fmt.Errorf("snapshotting original prediction for detection %d: %w", id, err)
			}
		}

		if err := tx.Model(&AnomalyDetection{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("applying edit to detection %d: %w", id, err)
		}

		return tx.First(&updated, id).Error
	})
	if err != nil {
		return AnomalyDetection{}, err
	}
	return updated, nil
}

// ListDetections returns the detections of an analysis ordered by
// confidence, highest first. Soft-deleted rows are excluded unless
// includeDeleted is set.
func (ds *DataStore) ListDetections(analysisID uint, includeDeleted bool) ([]AnomalyDetection, error) {
	query := ds.DB.Where("analysis_id = ?", analysisID)
	if !includeDeleted {
		query = query.Where("annotation_status <> ?", StatusDeleted)
	}

	var detections []AnomalyDetection
	if err := query.Order("confidence DESC").Find(&detections).Error; err != nil {
		return nil, fmt.Errorf("listing detections for analysis %d: %w", analysisID, err)
	}
	return detections, nil
}
