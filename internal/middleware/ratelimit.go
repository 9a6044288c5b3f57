package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RateLimit creates a Gin middleware for per-IP throttling of the admin routes.
// It uses the provided limiter instance.
func RateLimit(limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		context, err := limiterInstance.Get(c.Request.Context(), ip)
		if err != nil {
			GetLoggerFromCtx(c.Request.Context()).Error("Failed to get rate limit context", slog.String("ip", ip), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during rate limit check"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))

		if context.Reached {
			GetLoggerFromCtx(c.Request.Context()).Warn("Rate limit exceeded", slog.String("ip", ip), slog.Int64("limit", context.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}

		c.Next()
	}
}

// AdmissionLimit enforces the hourly per-client ceiling. It must run after
// APIKeyAuthMiddleware, which establishes the client id.
func AdmissionLimit(admission portssvc.AdmissionLimiterSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := GetClientIDFromContext(c)
		if !ok {
			clientID = c.ClientIP()
		}

		if !admission.Allow(c.Request.Context(), clientID) {
			GetLoggerFromCtx(c.Request.Context()).Warn("Hourly request ceiling reached",
				slog.String("client_id", clientID),
				slog.Int64("ceiling", admission.Ceiling()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Maximum " + strconv.FormatInt(admission.Ceiling(), 10) + " requests per hour.",
			})
			return
		}

		c.Next()
	}
}
