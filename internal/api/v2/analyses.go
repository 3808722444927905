// analyses.go: analysis submission and query endpoints
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Kirushanth-G/transformer-monitoring/internal/analysis"
	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
)

func (c *Controller) initAnalysisRoutes() {
	c.Group.POST("/analysis", c.RunAnalysis)
	c.Group.POST("/analysis/async", c.RunAnalysisAsync)
	c.Group.GET("/analysis/tasks/:id", c.GetAnalysisTask)
	c.Group.GET("/analysis/latest", c.GetLatestAnalysis)
	c.Group.GET("/analysis/:id", c.GetAnalysis)
	c.Group.DELETE("/analysis/:id", c.DeleteAnalysis)
	c.Group.GET("/analysis/:id/detections", c.ListAnalysisDetections)
	c.Group.GET("/analysis", c.ListAnalyses)
}

// AnalysisRequest is the inbound payload for analysis submission.
type AnalysisRequest struct {
	MaintenanceImageRef string         `json:"maintenance_image_ref"`
	BaselineImageRef    string         `json:"baseline_image_ref,omitempty"`
	EquipmentID         *uint          `json:"equipment_id,omitempty"`
	InspectionID        *uint          `json:"inspection_id,omitempty"`
	Sensitivity         *int           `json:"sensitivity,omitempty"`
	ProcessingDevice    *int           `json:"processing_device,omitempty"`
	InputImageSize      *int           `json:"input_image_size,omitempty"`
	UseHalfPrecision    *bool          `json:"use_half_precision,omitempty"`
	ConfigOverrides     map[string]any `json:"config_overrides,omitempty"`
	CreatedBy           string         `json:"created_by,omitempty"`
}

func (r *AnalysisRequest) toRequest() *analysis.Request {
	return &analysis.Request{
		MaintenanceImageRef: r.MaintenanceImageRef,
		BaselineImageRef:    r.BaselineImageRef,
		EquipmentID:         r.EquipmentID,
		InspectionID:        r.InspectionID,
		SensitivityPct:      r.Sensitivity,
		ProcessingDevice:    r.ProcessingDevice,
		InputImageSize:      r.InputImageSize,
		UseHalfPrecision:    r.UseHalfPrecision,
		ConfigOverrides:     r.ConfigOverrides,
		CreatedBy:           r.CreatedBy,
	}
}

// RunAnalysis handles POST /api/v2/analysis. Runs the analysis
// synchronously; slow by design since vision inference may take minutes.
func (c *Controller) RunAnalysis(ctx echo.Context) error {
	var req AnalysisRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).Category(errors.CategoryValidation).Component("api").Build(),
			"Invalid request body")
	}

	result, err := c.Orchestrator.RunAnalysis(ctx.Request().Context(), req.toRequest())
	if err != nil {
		return c.HandleError(ctx, err, "Analysis failed")
	}

	if c.Metrics != nil {
		c.Metrics.Vision.RecordAnalysis(string(result.OverallAssessment), len(result.Detections))
	}

	return ctx.JSON(http.StatusOK, result)
}

// TaskResponse describes an async analysis task.
type TaskResponse struct {
	TaskID      string                     `json:"task_id"`
	Status      string                     `json:"status"`
	Analysis    *datastore.ThermalAnalysis `json:"analysis,omitempty"`
	Error       string                     `json:"error,omitempty"`
	SubmittedAt string                     `json:"submitted_at"`
}

// RunAnalysisAsync handles POST /api/v2/analysis/async. Returns a task id
// immediately; poll GET /analysis/tasks/:id for the outcome.
func (c *Controller) RunAnalysisAsync(ctx echo.Context) error {
	var req AnalysisRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).Category(errors.CategoryValidation).Component("api").Build(),
			"Invalid request body")
	}

	task := c.Orchestrator.RunAnalysisAsync(ctx.Request().Context(), req.toRequest())

	return ctx.JSON(http.StatusAccepted, &TaskResponse{
		TaskID:      task.ID,
		Status:      string(task.Status()),
		SubmittedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetAnalysisTask handles GET /api/v2/analysis/tasks/:id.
func (c *Controller) GetAnalysisTask(ctx echo.Context) error {
	task, ok := c.Orchestrator.GetTask(ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx,
			errors.Newf("analysis task not found: %s", ctx.Param("id")).
				Category(errors.CategoryNotFound).Component("api").Build(),
			"Task not found")
	}

	resp := &TaskResponse{
		TaskID:      task.ID,
		Status:      string(task.Status()),
		SubmittedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if result, err := task.Result(); result != nil || err != nil {
		resp.Analysis = result
		if err != nil {
			resp.Error = err.Error()
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

// GetAnalysis handles GET /api/v2/analysis/:id.
func (c *Controller) GetAnalysis(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid analysis ID")
	}

	result, err := c.DS.GetAnalysis(id)
	c.recordStoreOp("get_analysis", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get analysis")
	}
	return ctx.JSON(http.StatusOK, &result)
}

// DeleteAnalysis handles DELETE /api/v2/analysis/:id. Removal cascades to
// the analysis's detections and config entries.
func (c *Controller) DeleteAnalysis(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid analysis ID")
	}

	err = c.DS.DeleteAnalysis(id)
	c.recordStoreOp("delete_analysis", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to delete analysis")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListResponse wraps paginated analysis listings.
type ListResponse struct {
	Analyses []datastore.ThermalAnalysis `json:"analyses"`
	Total    int64                       `json:"total"`
	Limit    int                         `json:"limit"`
	Offset   int                         `json:"offset"`
}

// ListAnalyses handles GET /api/v2/analysis with optional filters:
// equipment_id, image_id, inspection_id, assessment, critical=true,
// limit and offset.
func (c *Controller) ListAnalyses(ctx echo.Context) error {
	filter := datastore.AnalysisFilter{
		Limit:  parseIntParam(ctx.QueryParam("limit"), 100),
		Offset: parseIntParam(ctx.QueryParam("offset"), 0),
	}

	for param, dst := range map[string]**uint{
		"equipment_id":  &filter.EquipmentID,
		"image_id":      &filter.ImageID,
		"inspection_id": &filter.InspectionID,
	} {
		if raw := ctx.QueryParam(param); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return c.HandleError(ctx, err, "Invalid "+param)
			}
			*dst = &id
		}
	}

	if assessment := ctx.QueryParam("assessment"); assessment != "" {
		filter.Assessment = datastore.AssessmentType(assessment)
	}
	filter.CriticalOnly = ctx.QueryParam("critical") == "true"

	analyses, total, err := c.DS.ListAnalyses(filter)
	c.recordStoreOp("list_analyses", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list analyses")
	}

	return ctx.JSON(http.StatusOK, &ListResponse{
		Analyses: analyses,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// GetLatestAnalysis handles GET /api/v2/analysis/latest with either
// equipment_id or inspection_id.
func (c *Controller) GetLatestAnalysis(ctx echo.Context) error {
	if raw := ctx.QueryParam("equipment_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid equipment_id")
		}
		result, err := c.DS.LatestAnalysisForEquipment(id)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to get latest analysis")
		}
		return ctx.JSON(http.StatusOK, &result)
	}
	if raw := ctx.QueryParam("inspection_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid inspection_id")
		}
		result, err := c.DS.LatestAnalysisForInspection(id)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to get latest analysis")
		}
		return ctx.JSON(http.StatusOK, &result)
	}

	return c.HandleError(ctx,
		errors.Newf("equipment_id or inspection_id query parameter is required").
			Category(errors.CategoryValidation).Component("api").Build(),
		"Missing filter")
}

// ListAnalysisDetections handles GET /api/v2/analysis/:id/detections with
// optional include_deleted=true.
func (c *Controller) ListAnalysisDetections(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid analysis ID")
	}

	includeDeleted := ctx.QueryParam("include_deleted") == "true"
	detections, err := c.Annotations.ListDetections(id, includeDeleted)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list detections")
	}
	return ctx.JSON(http.StatusOK, detections)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Newf("invalid numeric ID: %q", raw).
			Category(errors.CategoryValidation).
			Component("api").
			Build()
	}
	return uint(id), nil
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
