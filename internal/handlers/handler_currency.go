package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/dto"
	"github.com/gin-gonic/gin"
)

// currencyHandler handles HTTP requests related to currencies.
type currencyHandler struct {
	exchangeRateService portssvc.ExchangeRateReaderSvc
}

// RegisterCurrencyRoutes registers routes related to currencies.
func RegisterCurrencyRoutes(rg *gin.RouterGroup, exchangeRateService portssvc.ExchangeRateReaderSvc) {
	h := &currencyHandler{exchangeRateService: exchangeRateService}
	rg.GET("/currencies", h.listCurrencies)
}

// listCurrencies godoc
// @Summary List supported currencies
// @Description Currency codes the service resolves rates for
// @Tags currencies
// @Produce json
// @Success 200 {object} dto.CurrenciesResponse
// @Security BearerAuth
// @Router /currencies [get]
func (h *currencyHandler) listCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CurrenciesResponse{
		BaseCurrency: h.exchangeRateService.BaseCurrency(),
		Currencies:   h.exchangeRateService.SupportedCurrencies(),
	})
}
