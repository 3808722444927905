// Package annotation implements the human feedback lifecycle over anomaly
// detections: adding missed boxes, editing AI boxes with original-prediction
// capture, confirming, and soft-deleting false positives.
package annotation

import (
	"log/slog"
	"time"

	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
)

// Service applies annotation actions to stored detections.
type Service struct {
	ds  datastore.Interface
	log *slog.Logger
}

// New creates an annotation service backed by the given store.
func New(ds datastore.Interface) *Service {
	logger := logging.ForService("annotation")
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ds: ds, log: logger}
}

// AddRequest describes a human-added detection. Geometry and label are
// required; confidence defaults to 1.0 and area to width*height.
type AddRequest struct {
	AnalysisID uint
	X          int
	Y          int
	Width      int
	Height     int
	Label      string
	Confidence *float64
	Comments   string
	Reviewer   string
}

// EditRequest carries the operator-editable fields of a detection. Nil
// fields are left untouched.
type EditRequest struct {
	X          *int
	Y          *int
	Width      *int
	Height     *int
	Label      *string
	Confidence *float64
	Comments   *string
	Reviewer   string
}

// Add records a detection the vision service missed. The row is marked
// HUMAN-sourced with status ADDED and never carries an original prediction.
func (s *Service) Add(req *AddRequest) (datastore.AnomalyDetection, error) {
	if req.Label == "" {
		return datastore.AnomalyDetection{}, errors.Newf("detection label cannot be empty").
			Category(errors.CategoryValidation).
			Component("annotation").
			Build()
	}
	if req.Width <= 0 || req.Height <= 0 {
		return datastore.AnomalyDetection{}, errors.Newf("detection width and height must be positive").
			Category(errors.CategoryValidation).
			Component("annotation").
			Build()
	}

	// Parent must exist; a dangling detection row is never created.
	if _, err := s.ds.GetAnalysis(req.AnalysisID); err != nil {
		return datastore.AnomalyDetection{}, err
	}

	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	now := time.Now()
	detection := datastore.AnomalyDetection{
		AnalysisID:       req.AnalysisID,
		X:                req.X,
		Y:                req.Y,
		Width:            req.Width,
		Height:           req.Height,
		Label:            req.Label,
		Confidence:       confidence,
		Area:             req.Width * req.Height,
		DetectionSource:  datastore.SourceHuman,
		AnnotationStatus: datastore.StatusAdded,
		UserComments:     req.Comments,
		ModifiedBy:       req.Reviewer,
		ModifiedAt:       &now,
	}

	if err := s.ds.InsertDetection(&detection); err != nil {
		return datastore.AnomalyDetection{}, err
	}

	s.log.Info("Detection added",
		"detection_id", detection.ID,
		"analysis_id", req.AnalysisID,
		"reviewer", req.Reviewer)
	return detection, nil
}

// Edit applies operator changes to a detection. For AI-sourced rows the
// pre-edit geometry is captured once into the original prediction column
// before the first overwrite; later edits leave the snapshot untouched.
// The area is recomputed from the resulting geometry and the row moves to
// status EDITED.
func (s *Service) Edit(id uint, req *EditRequest) (datastore.AnomalyDetection, error) {
	current, err := s.ds.GetDetection(id)
	if err != nil {
		return datastore.AnomalyDetection{}, err
	}

	width := current.Width
	if req.Width != nil {
		if *req.Width <= 0 {
			return datastore.AnomalyDetection{}, errors.Newf("detection width must be positive").
				Category(errors.CategoryValidation).
				Component("annotation").
				Build()
		}
		width = *req.Width
	}
	height := current.Height
	if req.Height != nil {
		if *req.Height <= 0 {
			return datastore.AnomalyDetection{}, errors.Newf("detection height must be positive").
				Category(errors.CategoryValidation).
				Component("annotation").
				Build()
		}
		height = *req.Height
	}

	now := time.Now()
	fields := map[string]any{
		"width":             width,
		"height":            height,
		"area":              width * height,
		"annotation_status": datastore.StatusEdited,
		"modified_by":       req.Reviewer,
		"modified_at":       &now,
	}
	if req.X != nil {
		fields["x"] = *req.X
	}
	if req.Y != nil {
		fields["y"] = *req.Y
	}
	if req.Label != nil {
		fields["label"] = *req.Label
	}
	if req.Confidence != nil {
		fields["confidence"] = *req.Confidence
	}
	if req.Comments != nil {
		fields["user_comments"] = *req.Comments
	}

	updated, err := s.ds.ApplyDetectionEdit(id, fields)
	if err != nil {
		return datastore.AnomalyDetection{}, err
	}

	s.log.Info("Detection edited",
		"detection_id", id,
		"reviewer", req.Reviewer)
	return updated, nil
}

// Confirm marks a detection as human-verified. Geometry is untouched and
// no original prediction is captured; confirming is not an edit.
func (s *Service) Confirm(id uint, reviewer, comments string) (datastore.AnomalyDetection, error) {
	now := time.Now()
	fields := map[string]any{
		"annotation_status": datastore.StatusConfirmed,
		"modified_by":       reviewer,
		"modified_at":       &now,
	}
	if comments != "" {
		fields["user_comments"] = comments
	}

	if err := s.ds.UpdateDetection(id, fields); err != nil {
		return datastore.AnomalyDetection{}, err
	}

	s.log.Info("Detection confirmed", "detection_id", id, "reviewer", reviewer)
	return s.ds.GetDetection(id)
}

// Delete soft-deletes a detection as a false positive. The row is retained
// for audit and retraining; only its status changes.
func (s *Service) Delete(id uint, reviewer, comments string) error {
	now := time.Now()
	fields := map[string]any{
		"annotation_status": datastore.StatusDeleted,
		"modified_by":       reviewer,
		"modified_at":       &now,
	}
	if comments != "" {
		fields["user_comments"] = comments
	}

	if err := s.ds.UpdateDetection(id, fields); err != nil {
		return err
	}

	s.log.Info("Detection soft-deleted", "detection_id", id, "reviewer", reviewer)
	return nil
}

// ListDetections returns the detections of an analysis, excluding
// soft-deleted rows unless includeDeleted is set.
func (s *Service) ListDetections(analysisID uint, includeDeleted bool) ([]datastore.AnomalyDetection, error) {
	return s.ds.ListDetections(analysisID, includeDeleted)
}
