package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/pricing"
	"stockbook/pkg/logger"
)

// CostProvider supplies the item aggregate to freeze onto new snapshots.
// Satisfied by the ledger service.
type CostProvider interface {
	CurrentState(ctx context.Context, itemID id.ID) (ledger.ItemState, error)
}

// Service is the reporting projector: it ingests frozen line snapshots from
// the invoicing collaborator and derives per-document financial figures.
type Service struct {
	repo  Repository
	costs CostProvider
	txm   tx.Manager
}

// NewService creates a reporting service.
func NewService(repo Repository, costs CostProvider, txm tx.Manager) *Service {
	return &Service{repo: repo, costs: costs, txm: txm}
}

// LineInput is one invoice line as submitted by the invoicing collaborator.
type LineInput struct {
	ItemID    id.ID
	Qty       types.Quantity
	UnitPrice types.Money
	TaxRate   types.Money
}

// IngestLines freezes a document's line snapshots, stamping each line with
// the item's average cost as of this moment. Atomic per document.
func (s *Service) IngestLines(ctx context.Context, documentNo string, kind DocumentKind, lines []LineInput) ([]LineSnapshot, error) {
	if documentNo == "" {
		return nil, apperror.NewValidation("document number is required").
			WithDetail("field", "documentNo")
	}
	if _, err := ParseDocumentKind(string(kind)); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, l := range lines {
		if id.IsNil(l.ItemID) {
			return nil, apperror.NewValidation("item id is required").
				WithDetail("lineNo", i+1)
		}
		if !l.Qty.IsPositive() {
			return nil, apperror.NewInvalidQuantity("line quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return nil, apperror.NewInvalidCost("unit price must not be negative").
				WithDetail("lineNo", i+1)
		}
	}

	var snapshots []LineSnapshot
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Duplicate check and insert share the transaction; a concurrent
		// ingest of the same document that slips past the check still
		// fails on the (document_no, line_no) unique constraint, which the
		// repository reports as a duplicate.
		if existing, err := s.repo.GetDocumentLines(ctx, documentNo); err != nil {
			return fmt.Errorf("check document: %w", err)
		} else if len(existing) > 0 {
			return apperror.NewDuplicate("document snapshot", "documentNo", documentNo)
		}

		now := time.Now().UTC()
		snapshots = make([]LineSnapshot, 0, len(lines))
		for i, l := range lines {
			state, err := s.costs.CurrentState(ctx, l.ItemID)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, LineSnapshot{
				ID:             id.New(),
				DocumentNo:     documentNo,
				DocumentKind:   kind,
				LineNo:         i + 1,
				ItemID:         l.ItemID,
				Qty:            l.Qty,
				UnitPrice:      l.UnitPrice,
				TaxRate:        l.TaxRate,
				BaseCostAtSale: state.AverageUnitCost,
				CreatedAt:      now,
			})
		}
		return s.repo.CreateLines(ctx, snapshots)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "document lines frozen",
		"document_no", documentNo,
		"kind", kind,
		"lines", len(snapshots),
	)
	return snapshots, nil
}

// DocumentTotals derives the per-document aggregates from frozen snapshots.
// Each line figure is ceiling-rounded before summation; the document sign is
// flipped exactly once for returns, never per field.
func (s *Service) DocumentTotals(ctx context.Context, documentNo string) (*DocumentTotals, error) {
	lines, err := s.repo.GetDocumentLines(ctx, documentNo)
	if err != nil {
		return nil, fmt.Errorf("get document lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperror.NewNotFound("document", documentNo)
	}

	totals := &DocumentTotals{
		DocumentNo:   documentNo,
		DocumentKind: lines[0].DocumentKind,
		Lines:        len(lines),
		Subtotal:     decimal.Zero,
		Tax:          decimal.Zero,
		OriginalCost: decimal.Zero,
		Margin:       decimal.Zero,
	}

	for _, l := range lines {
		totals.Subtotal = totals.Subtotal.Add(pricing.LineSubtotal(l.Qty, l.UnitPrice))
		totals.Tax = totals.Tax.Add(pricing.LineTax(l.Qty, l.UnitPrice, l.TaxRate))
		totals.OriginalCost = totals.OriginalCost.Add(pricing.LineCost(l.Qty, l.BaseCostAtSale))
		totals.Margin = totals.Margin.Add(pricing.LineMargin(l.Qty, l.UnitPrice, l.BaseCostAtSale))
	}

	if sign := totals.DocumentKind.Sign(); sign < 0 {
		totals.Subtotal = totals.Subtotal.Neg()
		totals.Tax = totals.Tax.Neg()
		totals.OriginalCost = totals.OriginalCost.Neg()
		totals.Margin = totals.Margin.Neg()
	}

	return totals, nil
}

// DocumentLines returns a document's frozen snapshots in line order.
func (s *Service) DocumentLines(ctx context.Context, documentNo string) ([]LineSnapshot, error) {
	lines, err := s.repo.GetDocumentLines(ctx, documentNo)
	if err != nil {
		return nil, fmt.Errorf("get document lines: %w", err)
	}
	return lines, nil
}
