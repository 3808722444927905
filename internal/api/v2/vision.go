// vision.go: vision service health and info endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initVisionRoutes() {
	c.Group.GET("/vision/health", c.VisionHealth)
	c.Group.GET("/vision/info", c.VisionInfo)
}

// HealthResponse reports vision service availability.
type HealthResponse struct {
	Available bool   `json:"available"`
	BaseURL   string `json:"base_url"`
}

// VisionHealth handles GET /api/v2/vision/health. Always a 200; the
// payload carries availability so monitoring can distinguish "API down"
// from "vision service down".
func (c *Controller) VisionHealth(ctx echo.Context) error {
	available := c.Vision.HealthCheck(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, &HealthResponse{
		Available: available,
		BaseURL:   c.Settings.Vision.BaseURL,
	})
}

// VisionInfo handles GET /api/v2/vision/info, proxying the service's
// self-description.
func (c *Controller) VisionInfo(ctx echo.Context) error {
	info, err := c.Vision.ServiceInfo(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get vision service info")
	}
	return ctx.JSONBlob(http.StatusOK, []byte(info))
}
