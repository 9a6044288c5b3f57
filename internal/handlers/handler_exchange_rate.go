package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/dto"
	"github.com/SscSPs/fx_rates_service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// exchangeRateHandler handles HTTP requests related to exchange rates.
type exchangeRateHandler struct {
	exchangeRateService portssvc.ExchangeRateReaderSvc
}

// newExchangeRateHandler creates a new exchangeRateHandler.
func newExchangeRateHandler(ers portssvc.ExchangeRateReaderSvc) *exchangeRateHandler {
	return &exchangeRateHandler{
		exchangeRateService: ers,
	}
}

// RegisterExchangeRateRoutes registers rate lookup and conversion routes.
func RegisterExchangeRateRoutes(rg *gin.RouterGroup, exchangeRateService portssvc.ExchangeRateReaderSvc) {
	h := newExchangeRateHandler(exchangeRateService)

	rates := rg.Group("/rates")
	{
		rates.GET("/latest", h.getLatestRates)
		rates.GET("/:base", h.getRatesForBase)
		rates.GET("/:base/:target", h.getExchangeRate)
	}
	rg.POST("/convert", h.convertCurrency)
}

func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	return d, nil
}

// getLatestRates godoc
// @Summary Get latest rates
// @Description Latest stored rates for the configured base currency
// @Tags rates
// @Produce json
// @Success 200 {object} map[string]dto.ExchangeRateResponse
// @Failure 404 {object} map[string]string "No rates stored yet"
// @Failure 503 {object} map[string]string "Rate store unavailable"
// @Security BearerAuth
// @Router /rates/latest [get]
func (h *exchangeRateHandler) getLatestRates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	base := h.exchangeRateService.BaseCurrency()

	snapshot, err := h.exchangeRateService.GetLatestRates(c.Request.Context(), base)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve latest rates")
		return
	}
	if len(snapshot) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No latest exchange rates found for " + base})
		return
	}

	logger.Debug("Latest rates served", slog.String("base", base), slog.Int("count", len(snapshot)))
	c.JSON(http.StatusOK, dto.ToRatesResponse(snapshot))
}

// getRatesForBase godoc
// @Summary Get all rates for a base currency
// @Description Latest rates for base, or the rates of a specific date when ?date is set
// @Tags rates
// @Produce json
// @Param base path string true "Base currency code" MinLength(3) MaxLength(3)
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} map[string]dto.ExchangeRateResponse
// @Failure 400 {object} map[string]string "Invalid currency or date"
// @Failure 404 {object} map[string]string "No rates found"
// @Security BearerAuth
// @Router /rates/{base} [get]
func (h *exchangeRateHandler) getRatesForBase(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	base := c.Param("base")

	var query dto.RateDateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	var snapshot domain.RateSnapshot
	if date.IsZero() {
		snapshot, err = h.exchangeRateService.GetLatestRates(c.Request.Context(), base)
	} else {
		snapshot, err = h.exchangeRateService.GetRatesForDate(c.Request.Context(), base, date)
	}
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rates")
		return
	}
	if len(snapshot) == 0 {
		msg := "No exchange rates found for " + domain.NormalizeCode(base)
		if !date.IsZero() {
			msg += " on " + domain.FormatDate(date)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, dto.ToRatesResponse(snapshot))
}

// getExchangeRate godoc
// @Summary Get an exchange rate
// @Description Rate between two currencies on a date, defaulting to today
// @Tags rates
// @Produce json
// @Param base path string true "Base currency code" MinLength(3) MaxLength(3)
// @Param target path string true "Target currency code" MinLength(3) MaxLength(3)
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} dto.ExchangeRateResponse
// @Failure 400 {object} map[string]string "Invalid currency or date"
// @Failure 404 {object} map[string]string "Exchange rate not found"
// @Failure 503 {object} map[string]string "Rate store unavailable"
// @Security BearerAuth
// @Router /rates/{base}/{target} [get]
func (h *exchangeRateHandler) getExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	base, target := c.Param("base"), c.Param("target")

	var query dto.RateDateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	logger = logger.With(slog.String("base", base), slog.String("target", target))
	rate, err := h.exchangeRateService.GetRate(c.Request.Context(), base, target, date)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve exchange rate")
		return
	}

	c.JSON(http.StatusOK, dto.ToExchangeRateResponse(rate))
}

// convertCurrency godoc
// @Summary Convert currency
// @Description Converts an amount using the direct rate or the inverse of the reverse rate
// @Tags rates
// @Produce json
// @Param amount query string true "Amount to convert (> 0)"
// @Param from_currency query string true "Source currency code"
// @Param to_currency query string true "Target currency code"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} dto.ConversionResponse
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 404 {object} map[string]string "Exchange rate not available"
// @Security BearerAuth
// @Router /convert [post]
func (h *exchangeRateHandler) convertCurrency(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var query dto.ConvertQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		logger.Warn("Failed to bind conversion query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	amount, err := decimal.NewFromString(query.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number greater than 0"})
		return
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		respondError(c, logger, err, "Invalid date")
		return
	}

	result, err := h.exchangeRateService.ConvertCurrency(c.Request.Context(), amount, query.FromCurrency, query.ToCurrency, date)
	if err != nil {
		respondError(c, logger, err, "Failed to convert currency")
		return
	}

	logger.Info("Currency converted",
		slog.String("from", result.OriginalCurrency),
		slog.String("to", result.TargetCurrency),
		slog.Bool("reversed", result.Reversed))
	c.JSON(http.StatusOK, dto.ToConversionResponse(result))
}
