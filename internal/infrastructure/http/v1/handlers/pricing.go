package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/pricing"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// PricingHandler exposes the retail price suggestion.
type PricingHandler struct {
	*BaseHandler
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(base *BaseHandler) *PricingHandler {
	return &PricingHandler{BaseHandler: base}
}

// PriceFromCost handles GET /pricing/price-from-cost
func (h *PricingHandler) PriceFromCost(c *gin.Context) {
	baseCost, ok := h.moneyQuery(c, "baseCost")
	if !ok {
		return
	}
	gstPct, ok := h.moneyQuery(c, "gstPct")
	if !ok {
		return
	}
	marginPct, ok := h.moneyQuery(c, "marginPct")
	if !ok {
		return
	}

	h.OK(c, dto.PriceFromCostResponse{
		BaseCost:  baseCost,
		GstPct:    gstPct,
		MarginPct: marginPct,
		Price:     pricing.PriceFromCost(baseCost, gstPct, marginPct),
	})
}

func (h *PricingHandler) moneyQuery(c *gin.Context, key string) (types.Money, bool) {
	val := c.Query(key)
	if val == "" {
		h.Error(c, apperror.NewValidation(key+" is required"))
		return types.Zero(), false
	}
	parsed, err := types.NewMoneyFromString(val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key+" format"))
		return types.Zero(), false
	}
	return parsed, true
}

// RegisterRoutes registers pricing routes.
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/price-from-cost", h.PriceFromCost)
}
