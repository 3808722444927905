// analysis.go: persistence and query operations for thermal analyses
package datastore

import (
	"fmt"

	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"gorm.io/gorm"
)

// SaveAnalysis stores an analysis together with its detections and config
// entries as a single transaction. If any child row fails to persist the
// whole operation rolls back, so an analysis is never left with a partial
// detection set.
func (ds *DataStore) SaveAnalysis(analysis *ThermalAnalysis) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		// Create cascades to the Detections and Configs associations
		if err := tx.Create(analysis).Error; err != nil {
			return fmt.Errorf("saving analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Context("detection_count", len(analysis.Detections)).
			Build()
	}
	return nil
}

// GetAnalysis retrieves an analysis by ID with its detections and configs.
func (ds *DataStore) GetAnalysis(id uint) (ThermalAnalysis, error) {
	var analysis ThermalAnalysis
	err := ds.DB.Preload("Detections").Preload("Configs").First(&analysis, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ThermalAnalysis{}, errors.Newf("thermal analysis not found with ID: %d", id).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return ThermalAnalysis{}, fmt.Errorf("getting analysis with ID %d: %w", id, err)
	}
	return analysis, nil
}

// DeleteAnalysis removes an analysis and, through cascade constraints, all
// of its detections and config entries.
func (ds *DataStore) DeleteAnalysis(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&AnomalyDetection{}).Error; err != nil {
			return fmt.Errorf("deleting detections for analysis ID %d: %w", id, err)
		}
		if err := tx.Where("analysis_id = ?", id).Delete(&AnalysisConfig{}).Error; err != nil {
			return fmt.Errorf("deleting configs for analysis ID %d: %w", id, err)
		}
		result := tx.Delete(&ThermalAnalysis{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting analysis ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.Newf("thermal analysis not found with ID: %d", id).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return nil
	})
}

// ListAnalyses returns analyses matching the filter, newest first, along
// with the total count before pagination.
func (ds *DataStore) ListAnalyses(filter AnalysisFilter) ([]ThermalAnalysis, int64, error) {
	query := ds.DB.Model(&ThermalAnalysis{})

	if filter.EquipmentID != nil {
		query = query.Where("equipment_id = ?", *filter.EquipmentID)
	}
	if filter.ImageID != nil {
		query = query.Where("maintenance_image_id = ?", *filter.ImageID)
	}
	if filter.InspectionID != nil {
		query = query.Where("inspection_id = ?", *filter.InspectionID)
	}
	if filter.Assessment != "" {
		query = query.Where("overall_assessment = ?", filter.Assessment)
	}
	if filter.CriticalOnly {
		query = query.Where(
			"id IN (?)",
			ds.DB.Model(&AnomalyDetection{}).
				Select("analysis_id").
				Where("is_critical = ? AND annotation_status <> ?", true, StatusDeleted),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting analyses: %w", err)
	}

	query = query.Order("analysis_timestamp DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var analyses []ThermalAnalysis
	if err := query.Preload("Detections").Find(&analyses).Error; err != nil {
		return nil, 0, fmt.Errorf("listing analyses: %w", err)
	}
	return analyses, total, nil
}

// LatestAnalysisForEquipment returns the most recent analysis linked to the
// given equipment.
func (ds *DataStore) LatestAnalysisForEquipment(equipmentID uint) (ThermalAnalysis, error) {
	return ds.latestAnalysis("equipment_id = ?", equipmentID)
}

// LatestAnalysisForInspection returns the most recent analysis linked to the
// given inspection.
func (ds *DataStore) LatestAnalysisForInspection(inspectionID uint) (ThermalAnalysis, error) {
	return ds.latestAnalysis("inspection_id = ?", inspectionID)
}

func (ds *DataStore) latestAnalysis(cond string, arg any) (ThermalAnalysis, error) {
	var analysis ThermalAnalysis
	err := ds.DB.Where(cond, arg).
		Order("analysis_timestamp DESC").
		Preload("Detections").
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ThermalAnalysis{}, errors.Newf("no analysis found").
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return ThermalAnalysis{}, fmt.Errorf("getting latest analysis: %w", err)
	}
	return analysis, nil
}
