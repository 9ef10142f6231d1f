package reporting

import (
	"context"
)

// Repository persists line snapshots. Snapshots are written once at invoice
// save time and only ever read afterward.
type Repository interface {
	CreateLines(ctx context.Context, lines []LineSnapshot) error

	// GetDocumentLines returns a document's snapshots ordered by line number,
	// or an empty slice when the document is unknown.
	GetDocumentLines(ctx context.Context, documentNo string) ([]LineSnapshot, error)
}
