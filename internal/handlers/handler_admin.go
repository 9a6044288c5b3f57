package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/dto"
	"github.com/SscSPs/fx_rates_service/internal/middleware"
	"github.com/gin-gonic/gin"
)

// adminHandler exposes manual fetches, cache management and job control.
type adminHandler struct {
	exchangeRateService portssvc.ExchangeRateSvcFacade
	cacheService        portssvc.RateCacheSvc
	jobs                portssvc.JobControllerSvc
}

// RegisterAdminRoutes registers the /admin routes on rg.
func RegisterAdminRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &adminHandler{
		exchangeRateService: services.ExchangeRate,
		cacheService:        services.Cache,
		jobs:                services.Jobs,
	}

	admin := rg.Group("/admin")
	{
		admin.POST("/fetch-rates", h.fetchRates)
		admin.DELETE("/cache", h.clearCache)
		admin.GET("/cache/stats", h.cacheStats)
		admin.GET("/jobs", h.listJobs)
		admin.POST("/jobs/:jobID/run", h.runJob)
	}
}

// fetchRates godoc
// @Summary Manually trigger a rate fetch
// @Description Fetches today's rates for base (defaults to the configured base) and stores them
// @Tags admin
// @Produce json
// @Param base query string false "Base currency code"
// @Success 200 {object} dto.MessageResponse
// @Failure 502 {object} map[string]string "All rate providers failed"
// @Failure 500 {object} map[string]string "No rates stored"
// @Security BearerAuth
// @Router /admin/fetch-rates [post]
func (h *adminHandler) fetchRates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var query dto.FetchRatesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}
	base := query.Base
	if base == "" {
		base = h.exchangeRateService.BaseCurrency()
	}

	logger = logger.With(slog.String("base", base))
	logger.Info("Manual rate fetch requested")

	stored, err := h.exchangeRateService.FetchAndStoreDailyRates(c.Request.Context(), base)
	if err != nil {
		respondError(c, logger, err, "Failed to fetch exchange rates from external APIs")
		return
	}
	if !stored {
		logger.Warn("Manual rate fetch stored no rates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch exchange rates from external APIs"})
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Exchange rates fetched and stored successfully for " + base})
}

// clearCache godoc
// @Summary Clear cache
// @Description Removes every cached rate and snapshot
// @Tags admin
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Failure 500 {object} map[string]string "Failed to clear cache"
// @Security BearerAuth
// @Router /admin/cache [delete]
func (h *adminHandler) clearCache(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if !h.cacheService.InvalidateAll(c.Request.Context()) {
		logger.Error("Failed to clear cache")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Cache cleared successfully"})
}

// cacheStats godoc
// @Summary Cache statistics
// @Tags admin
// @Produce json
// @Success 200 {object} dto.CacheStatsResponse
// @Security BearerAuth
// @Router /admin/cache/stats [get]
func (h *adminHandler) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CacheStatsResponse{CacheStats: h.cacheService.Stats(c.Request.Context())})
}

// listJobs godoc
// @Summary List scheduled jobs
// @Tags admin
// @Produce json
// @Success 200 {object} dto.JobsResponse
// @Security BearerAuth
// @Router /admin/jobs [get]
func (h *adminHandler) listJobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, dto.JobsResponse{Jobs: []portssvc.JobStatus{}})
		return
	}
	c.JSON(http.StatusOK, dto.JobsResponse{Jobs: h.jobs.Jobs()})
}

// runJob godoc
// @Summary Run a scheduled job now
// @Description Starts the job in the background; a run already in flight is reported as a conflict
// @Tags admin
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 202 {object} dto.MessageResponse
// @Failure 404 {object} map[string]string "Unknown job"
// @Failure 409 {object} map[string]string "Job already running"
// @Security BearerAuth
// @Router /admin/jobs/{jobID}/run [post]
func (h *adminHandler) runJob(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	jobID := c.Param("jobID")

	if h.jobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No scheduler configured"})
		return
	}
	if err := h.jobs.RunNow(c.Request.Context(), jobID); err != nil {
		respondError(c, logger.With(slog.String("job_id", jobID)), err, "Failed to start job")
		return
	}
	c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "Job " + jobID + " started"})
}
