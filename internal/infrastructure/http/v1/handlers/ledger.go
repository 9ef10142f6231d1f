package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for the stock ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// AppendMove handles POST /ledger/moves
func (h *LedgerHandler) AppendMove(c *gin.Context) {
	var req dto.AppendMoveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid itemId format"))
		return
	}

	result, err := h.service.AppendMove(c.Request.Context(), ledger.AppendInput{
		ItemID:     itemID,
		Type:       ledger.MoveType(req.Type),
		Qty:        req.Qty,
		UnitCost:   req.UnitCost,
		Location:   req.Location,
		Reference:  req.Reference,
		Reason:     req.Reason,
		ClientTxID: req.ClientTransactionID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, dto.FromMoveResult(result))
}

// GetState handles GET /items/:id/state
func (h *LedgerHandler) GetState(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	state, err := h.service.CurrentState(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItemState(state))
}

// GetLocations handles GET /items/:id/locations
func (h *LedgerHandler) GetLocations(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	balances, err := h.service.LocationBalances(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.LocationBalanceResponse, len(balances))
	for i, b := range balances {
		response[i] = dto.LocationBalanceResponse{Location: b.Location, Qty: b.Qty}
	}

	h.OK(c, dto.ListResponse{Items: response, TotalCount: len(response)})
}

// GetMoves handles GET /items/:id/moves
func (h *LedgerHandler) GetMoves(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	filter := ledger.MoveFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if loc := c.Query("location"); loc != "" {
		filter.Location = &loc
	}
	if typeStr := c.Query("type"); typeStr != "" {
		parsed, err := ledger.ParseMoveType(typeStr)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Type = &parsed
	}
	if fromStr := c.Query("fromDate"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format, expected RFC3339"))
			return
		}
		filter.FromDate = &parsed
	}
	if toStr := c.Query("toDate"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format, expected RFC3339"))
			return
		}
		filter.ToDate = &parsed
	}

	moves, err := h.service.History(c.Request.Context(), itemID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.MoveResponse, len(moves))
	for i, m := range moves {
		response[i] = dto.FromMove(m)
	}

	h.OK(c, dto.MoveListResponse{Items: response, TotalCount: len(response)})
}

// GetLowStock handles GET /items/:id/low-stock
func (h *LedgerHandler) GetLowStock(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	low, err := h.service.LowStock(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.LowStockResponse{ItemID: itemID.String(), LowStock: low})
}

// Reconcile handles POST /items/:id/reconcile
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	if err := h.service.Reconcile(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "aggregate matches ledger replay")
}

// AllLocations handles GET /ledger/locations
func (h *LedgerHandler) AllLocations(c *gin.Context) {
	locations, err := h.service.AllLocations(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: locations, TotalCount: len(locations)})
}

func (h *LedgerHandler) itemID(c *gin.Context) (id.ID, bool) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid item id format"))
		return id.Nil(), false
	}
	return itemID, true
}

// RegisterItemRoutes registers the per-item ledger projections.
func (h *LedgerHandler) RegisterItemRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/state", h.GetState)
	rg.GET("/:id/locations", h.GetLocations)
	rg.GET("/:id/moves", h.GetMoves)
	rg.GET("/:id/low-stock", h.GetLowStock)
	rg.POST("/:id/reconcile", h.Reconcile)
}
