package handlers

import (
	"net/http"
	"time"

	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/dto"
	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint. Overridden at build time with -ldflags.
var Version = "1.0.0"

// RegisterHealthRoutes registers the readiness check on rg.
func RegisterHealthRoutes(rg *gin.RouterGroup, health portssvc.HealthSvc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		resp := dto.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   Version,
			Database:  health.DatabaseHealthy(ctx),
			Cache:     health.CacheHealthy(ctx),
		}

		status := http.StatusOK
		if !resp.Database || !resp.Cache {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})
}
