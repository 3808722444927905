// detections.go: human annotation endpoints for anomaly detections
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kirushanth-G/transformer-monitoring/internal/annotation"
	"github.com/Kirushanth-G/transformer-monitoring/internal/errors"
)

func (c *Controller) initDetectionRoutes() {
	c.Group.POST("/detections", c.AddDetection)
	c.Group.PUT("/detections/:id", c.EditDetection)
	c.Group.POST("/detections/:id/confirm", c.ConfirmDetection)
	c.Group.DELETE("/detections/:id", c.DeleteDetection)
}

// AddDetectionRequest is the payload for adding a missed detection.
type AddDetectionRequest struct {
	AnalysisID uint     `json:"analysis_id"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Comments   string   `json:"comments,omitempty"`
	Reviewer   string   `json:"reviewer,omitempty"`
}

// EditDetectionRequest is the payload for editing a detection. Absent
// fields are left unchanged.
type EditDetectionRequest struct {
	X          *int     `json:"x,omitempty"`
	Y          *int     `json:"y,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Label      *string  `json:"label,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Comments   *string  `json:"comments,omitempty"`
	Reviewer   string   `json:"reviewer,omitempty"`
}

// ReviewRequest carries reviewer metadata for confirm and delete actions.
type ReviewRequest struct {
	Reviewer string `json:"reviewer,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// AddDetection handles POST /api/v2/detections.
func (c *Controller) AddDetection(ctx echo.Context) error {
	var req AddDetectionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).Category(errors.CategoryValidation).Component("api").Build(),
			"Invalid request body")
	}

	detection, err := c.Annotations.Add(&annotation.AddRequest{
		AnalysisID: req.AnalysisID,
		X:          req.X,
		Y:          req.Y,
		Width:      req.Width,
		Height:     req.Height,
		Label:      req.Label,
		Confidence: req.Confidence,
		Comments:   req.Comments,
		Reviewer:   req.Reviewer,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to add detection")
	}
	return ctx.JSON(http.StatusCreated, &detection)
}

// EditDetection handles PUT /api/v2/detections/:id.
func (c *Controller) EditDetection(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection ID")
	}

	var req EditDetectionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).Category(errors.CategoryValidation).Component("api").Build(),
			"Invalid request body")
	}

	detection, err := c.Annotations.Edit(id, &annotation.EditRequest{
		X:          req.X,
		Y:          req.Y,
		Width:      req.Width,
		Height:     req.Height,
		Label:      req.Label,
		Confidence: req.Confidence,
		Comments:   req.Comments,
		Reviewer:   req.Reviewer,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to edit detection")
	}
	return ctx.JSON(http.StatusOK, &detection)
}

// ConfirmDetection handles POST /api/v2/detections/:id/confirm.
func (c *Controller) ConfirmDetection(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection ID")
	}

	var req ReviewRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).Category(errors.CategoryValidation).Component("api").Build(),
			"Invalid request body")
	}

	detection, err := c.Annotations.Confirm(id, req.Reviewer, req.Comments)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to confirm detection")
	}
	return ctx.JSON(http.StatusOK, &detection)
}

// DeleteDetection handles DELETE /api/v2/detections/:id. Soft delete: the
// row stays in the database with status DELETED.
func (c *Controller) DeleteDetection(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection ID")
	}

	var req ReviewRequest
	// Body is optional for deletes
	_ = ctx.Bind(&req)

	if err := c.Annotations.Delete(id, req.Reviewer, req.Comments); err != nil {
		return c.HandleError(ctx, err, "Failed to delete detection")
	}
	return ctx.NoContent(http.StatusNoContent)
}
