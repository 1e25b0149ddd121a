package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/taxsale/models"
)

// Health returns a handler for GET /health.
//
// The body is a bare liveness signal. The browser launches lazily on the
// first scrape, so its state is not part of liveness.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{OK: true})
	}
}
