// Package report_repo provides the PostgreSQL implementation of the line
// snapshot repository.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/reporting"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	linesTable = "document_lines"

	// Default name Postgres assigns to UNIQUE (document_no, line_no).
	linesConstraint = "document_lines_document_no_line_no_key"
)

var lineColumns = []string{
	"id", "document_no", "document_kind", "line_no", "item_id",
	"qty", "unit_price", "tax_rate", "base_cost_at_sale", "created_at",
}

// ReportRepo implements reporting.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	batch   *postgres.BatchInserter
}

var _ reporting.Repository = (*ReportRepo)(nil)

func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		batch:   postgres.NewBatchInserter(txm),
	}
}

// CreateLines writes a document's snapshots in one COPY. Must run inside a
// transaction so a partial document never becomes visible.
func (r *ReportRepo) CreateLines(ctx context.Context, lines []reporting.LineSnapshot) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			l.ID, l.DocumentNo, l.DocumentKind, l.LineNo, l.ItemID,
			l.Qty, l.UnitPrice, l.TaxRate, l.BaseCostAtSale, l.CreatedAt,
		})
	}

	if _, err := r.batch.CopyFromSlice(ctx, linesTable, lineColumns, rows); err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok && constraint == linesConstraint {
			return apperror.NewDuplicate("document snapshot", "documentNo", lines[0].DocumentNo)
		}
		return postgres.TranslateError(fmt.Errorf("copy document lines: %w", err))
	}

	return nil
}

// GetDocumentLines returns a document's snapshots ordered by line number.
func (r *ReportRepo) GetDocumentLines(ctx context.Context, documentNo string) ([]reporting.LineSnapshot, error) {
	q := r.builder.Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"document_no": documentNo}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := make([]reporting.LineSnapshot, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select document lines: %w", err))
	}

	return lines, nil
}
