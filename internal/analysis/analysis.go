// Package analysis orchestrates thermal anomaly analyses: it resolves image
// references, calls the vision service, normalizes detections and persists
// the outcome atomically.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
	"github.com/Kirushanth-G/transformer-monitoring/internal/imagestore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/logging"
	"github.com/Kirushanth-G/transformer-monitoring/internal/visionclient"
)

// Request describes one analysis to run. MaintenanceImageRef is required;
// everything else is optional and defaulted from settings.
type Request struct {
	MaintenanceImageRef string
	BaselineImageRef    string
	EquipmentID         *uint
	InspectionID        *uint
	SensitivityPct      *int
	ProcessingDevice    *int
	InputImageSize      *int
	UseHalfPrecision    *bool
	ConfigOverrides     map[string]any
	CreatedBy           string
}

// Orchestrator coordinates the vision client, the image locator and the
// record store. Safe for concurrent use; concurrency is bounded by the
// configured maximum.
type Orchestrator struct {
	settings *conf.Settings
	ds       datastore.Interface
	client   *visionclient.Client
	images   *imagestore.Locator
	sem      chan struct{}
	tasks    *taskRegistry
	log      *slog.Logger
}

// New creates an Orchestrator from the given collaborators.
func New(settings *conf.Settings, ds datastore.Interface, client *visionclient.Client, images *imagestore.Locator) *Orchestrator {
	maxConcurrent := settings.Vision.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		settings: settings,
		ds:       ds,
		client:   client,
		images:   images,
		sem:      make(chan struct{}, maxConcurrent),
		tasks:    newTaskRegistry(),
		log:      logger,
	}
}

// RunAnalysis executes one analysis synchronously and returns the persisted
// record. Blocks while the concurrency limit is saturated.
func (o *Orchestrator) RunAnalysis(ctx context.Context, req *Request) (*datastore.ThermalAnalysis, error) {
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Category(errors.CategoryTimeout).
			Component("analysis").
			Context("operation", "acquire-slot").
			Build()
	}
	return o.runAnalysis(ctx, req)
}

func (o *Orchestrator) runAnalysis(ctx context.Context, req *Request) (*datastore.ThermalAnalysis, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Maintenance image is mandatory and must resolve.
	maintenance, err := o.images.ResolveMaintenanceImage(req.MaintenanceImageRef)
	if err != nil {
		return nil, err
	}

	// Baseline is optional: a resolution failure degrades to a
	// single-image analysis.
	var baselineURL *string
	var baselineImageID *uint
	if req.BaselineImageRef != "" {
		baseline, err := o.images.ResolveBaselineImage(req.BaselineImageRef)
		if err != nil {
			o.log.Warn("Baseline image resolution failed, proceeding without baseline",
				"ref", req.BaselineImageRef,
				"error", err)
		} else {
			baselineURL = &baseline.URL
			baselineImageID = baseline.ImageID
		}
	}

	equipmentID := o.deriveEquipmentID(req, maintenance.ImageID)

	call := o.buildCall(req, maintenance.URL, baselineURL)

	start := time.Now()
	result, err := o.client.Analyze(ctx, call)
	if err != nil {
		return nil, err
	}

	analysis := o.buildRecord(req, call, maintenance, equipmentID, result)
	analysis.BaselineImageID = baselineImageID

	if err := o.ds.SaveAnalysis(analysis); err != nil {
		return nil, err
	}

	o.log.Info("Analysis completed",
		"analysis_id", analysis.ID,
		"assessment", analysis.OverallAssessment,
		"detections", len(analysis.Detections),
		"duration_ms", time.Since(start).Milliseconds())

	return analysis, nil
}

// validateRequest bounds-checks the per-request overrides before anything
// reaches the upstream wire payload or the stored record.
func validateRequest(req *Request) error {
	if req == nil {
		return errors.Newf("analysis request cannot be nil").
			Category(errors.CategoryValidation).
			Component("analysis").
			Build()
	}
	if req.SensitivityPct != nil && (*req.SensitivityPct < 0 || *req.SensitivityPct > 100) {
		return errors.Newf("sensitivity must be between 0 and 100, got %d", *req.SensitivityPct).
			Category(errors.CategoryValidation).
			Component("analysis").
			Build()
	}
	if req.InputImageSize != nil && (*req.InputImageSize < 224 || *req.InputImageSize > 1024) {
		return errors.Newf("input image size must be between 224 and 1024, got %d", *req.InputImageSize).
			Category(errors.CategoryValidation).
			Component("analysis").
			Build()
	}
	if req.ProcessingDevice != nil && *req.ProcessingDevice < -1 {
		return errors.Newf("processing device must be -1 (CPU) or a non-negative accelerator index, got %d", *req.ProcessingDevice).
			Category(errors.CategoryValidation).
			Component("analysis").
			Build()
	}
	return nil
}

// buildCall assembles the outbound payload, falling back to configured
// defaults for unset request fields.
func (o *Orchestrator) buildCall(req *Request, maintenanceURL string, baselineURL *string) *visionclient.AnalysisCall {
	vision := o.settings.Vision

	call := &visionclient.AnalysisCall{
		MaintenanceImageURL: maintenanceURL,
		BaselineImageURL:    baselineURL,
		ProcessingDevice:    vision.Device,
		InputImageSize:      vision.InputSize,
		UseHalfPrecision:    vision.HalfPrecision,
		WebResponseFormat:   true,
		SensitivityPct:      vision.Sensitivity,
		ConfigOverrides:     req.ConfigOverrides,
	}
	if req.SensitivityPct != nil {
		call.SensitivityPct = *req.SensitivityPct
	}
	if req.ProcessingDevice != nil {
		call.ProcessingDevice = *req.ProcessingDevice
	}
	if req.InputImageSize != nil {
		call.InputImageSize = *req.InputImageSize
	}
	if req.UseHalfPrecision != nil {
		call.UseHalfPrecision = *req.UseHalfPrecision
	}
	return call
}

// deriveEquipmentID picks the equipment linkage: an explicit request id
// wins, otherwise it is derived from the maintenance image's inspection
// chain, otherwise left unset.
func (o *Orchestrator) deriveEquipmentID(req *Request, imageID *uint) *uint {
	if req.EquipmentID != nil {
		return req.EquipmentID
	}
	if imageID == nil {
		return nil
	}
	transformer, err := o.ds.GetTransformerForImage(*imageID)
	if err != nil {
		o.log.Debug("Equipment derivation failed", "image_id", *imageID, "error", err)
		return nil
	}
	if transformer == nil {
		return nil
	}
	return &transformer.ID
}

// buildRecord converts a vision result into the persistent analysis record
// with its detections and config rows.
func (o *Orchestrator) buildRecord(req *Request, call *visionclient.AnalysisCall, maintenance imagestore.Resolved, equipmentID *uint, result *visionclient.Result) *datastore.ThermalAnalysis {
	var maintenanceImageID uint
	if maintenance.ImageID != nil {
		maintenanceImageID = *maintenance.ImageID
	}

	analysis := &datastore.ThermalAnalysis{
		MaintenanceImageID: maintenanceImageID,
		AnalysisTimestamp:  time.Now(),
		OverallAssessment:  parseAssessment(result.OverallAssessment),
		AnomalyScore:       result.AnomalyScore,
		SensitivityPct:     call.SensitivityPct,
		ProcessingTimeMs:   result.ProcessingTimeMs,
		ProcessingDevice:   call.ProcessingDevice,
		InputImageSize:     call.InputImageSize,
		UseHalfPrecision:   call.UseHalfPrecision,
		APIVersion:         result.APIVersion,
		EquipmentID:        equipmentID,
		InspectionID:       req.InspectionID,
		CreatedBy:          req.CreatedBy,
		Detections:         visionclient.NormalizeDetections(result.Detections, nil),
	}

	for key, value := range req.ConfigOverrides {
		analysis.Configs = append(analysis.Configs, datastore.AnalysisConfig{
			ConfigKey:   key,
			ConfigValue: fmt.Sprintf("%v", value),
		})
	}

	return analysis
}

// parseAssessment maps an upstream assessment string to the stored enum.
// Unknown values, including the degraded "error" assessment, map to NORMAL
// so every analysis remains persistable.
func parseAssessment(s string) datastore.AssessmentType {
	switch s {
	case "warning", "WARNING":
		return datastore.AssessmentWarning
	case "critical", "CRITICAL":
		return datastore.AssessmentCritical
	default:
		return datastore.AssessmentNormal
	}
}
