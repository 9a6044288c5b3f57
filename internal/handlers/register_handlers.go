package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/middleware"
	"github.com/SscSPs/fx_rates_service/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// adminLimiter throttles the admin group per IP; nil disables it.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	adminLimiter *limiter.Limiter,
) {
	// Liveness only; readiness is /api/v1/health
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	public := r.Group("/api/v1")
	RegisterHealthRoutes(public, services.Health)

	setupAPIV1Routes(r, cfg, services, adminLimiter)
}

// setupAPIV1Routes configures the authenticated, admission-limited /api/v1 group.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	adminLimiter *limiter.Limiter,
) {
	v1 := r.Group("/api/v1",
		middleware.APIKeyAuthMiddleware(cfg.APIKey),
		middleware.AdmissionLimit(services.Limiter),
	)

	RegisterCurrencyRoutes(v1, services.ExchangeRate)
	RegisterExchangeRateRoutes(v1, services.ExchangeRate)

	admin := v1.Group("")
	if adminLimiter != nil {
		admin.Use(middleware.RateLimit(adminLimiter))
	}
	RegisterAdminRoutes(admin, services)
}
