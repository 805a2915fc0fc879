package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message" example:"Todo API is running"`
	Version string `json:"version" example:"1.0.0"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// Root godoc
// @ID          root
// @Summary     Service banner
// @Tags        Health
// @Produce     json
// @Success     200  {object} handlers.RootResponse
// @Router      / [get]
func Root(version string) gin.HandlerFunc {
	body := RootResponse{Message: "Todo API is running", Version: version}
	return func(c *gin.Context) {
		ok(c, http.StatusOK, body)
	}
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object} handlers.HealthResponse
// @Router      /health [get]
func Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "healthy"})
}
