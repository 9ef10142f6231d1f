package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/reporting"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles invoice-time snapshots and document reports.
type ReportsHandler struct {
	*BaseHandler
	service *reporting.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reporting.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// IngestLines handles POST /invoices/:no/lines
func (h *ReportsHandler) IngestLines(c *gin.Context) {
	documentNo := c.Param("no")

	var req dto.IngestLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines := make([]reporting.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid itemId format").WithDetail("itemId", l.ItemID))
			return
		}
		lines = append(lines, reporting.LineInput{
			ItemID:    itemID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
		})
	}

	snapshots, err := h.service.IngestLines(c.Request.Context(), documentNo, reporting.DocumentKind(req.Kind), lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.LineSnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		response[i] = dto.FromLineSnapshot(s)
	}

	c.JSON(http.StatusCreated, dto.ListResponse{Items: response, TotalCount: len(response)})
}

// GetDocument handles GET /reports/documents/:no
func (h *ReportsHandler) GetDocument(c *gin.Context) {
	documentNo := c.Param("no")
	ctx := c.Request.Context()

	totals, err := h.service.DocumentTotals(ctx, documentNo)
	if err != nil {
		h.Error(c, err)
		return
	}

	lines, err := h.service.DocumentLines(ctx, documentNo)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.DocumentTotalsResponse{
		DocumentNo:   totals.DocumentNo,
		DocumentKind: string(totals.DocumentKind),
		Subtotal:     totals.Subtotal,
		Tax:          totals.Tax,
		OriginalCost: totals.OriginalCost,
		Margin:       totals.Margin,
	}
	response.Lines = make([]dto.LineSnapshotResponse, len(lines))
	for i, l := range lines {
		response.Lines[i] = dto.FromLineSnapshot(l)
	}

	h.OK(c, response)
}
