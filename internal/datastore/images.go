// images.go: lookups against the image and equipment tables owned by the
// storage subsystem
package datastore

import (
	"fmt"

	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"gorm.io/gorm"
)

// GetInspectionImage retrieves a maintenance image record by ID.
func (ds *DataStore) GetInspectionImage(id uint) (InspectionImage, error) {
	var image InspectionImage
	if err := ds.DB.First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InspectionImage{}, errors.Newf("image not found with ID: %d", id).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return InspectionImage{}, fmt.Errorf("getting inspection image %d: %w", id, err)
	}
	return image, nil
}

// GetTransformerImage retrieves a baseline image record by ID.
func (ds *DataStore) GetTransformerImage(id uint) (TransformerImage, error) {
	var image TransformerImage
	if err := ds.DB.First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransformerImage{}, errors.Newf("transformer image not found with ID: %d", id).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Build()
		}
		return TransformerImage{}, fmt.Errorf("getting transformer image %d: %w", id, err)
	}
	return image, nil
}

// GetTransformerForImage walks maintenance image -> inspection ->
// transformer and returns the linked equipment, or nil if any link in the
// chain is missing. Used to derive equipment when the analysis request does
// not name it explicitly.
func (ds *DataStore) GetTransformerForImage(imageID uint) (*Transformer, error) {
	image, err := ds.GetInspectionImage(imageID)
	if err != nil {
		return nil, err
	}
	if image.InspectionID == nil {
		return nil, nil
	}

	var inspection Inspection
	if err := ds.DB.First(&inspection, *image.InspectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting inspection %d: %w", *image.InspectionID, err)
	}
	if inspection.TransformerID == nil {
		return nil, nil
	}

	var transformer Transformer
	if err := ds.DB.First(&transformer, *inspection.TransformerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting transformer %d: %w", *inspection.TransformerID, err)
	}
	return &transformer, nil
}
