package listings

import (
	"context"

	"github.com/recares/dme-matcher/internal/domain"
)

// Repository is the tabular record store. Rows and columns are only ever
// added, never removed; writes are targeted single-cell updates with
// last-write-wins semantics.
type Repository interface {
	// Snapshot reads the whole sheet, header included. An unknown sheet
	// yields an empty grid.
	Snapshot(ctx context.Context, sheet string) (domain.Grid, error)

	// WriteCell sets one cell. Returns ErrRowNotFound for a missing row.
	WriteCell(ctx context.Context, sheet string, u domain.CellUpdate) error

	// AppendColumn adds a header cell after the last column and returns its
	// zero-based index.
	AppendColumn(ctx context.Context, sheet, label string) (int, error)

	// AppendRow stores a new form response and returns its grid row index.
	AppendRow(ctx context.Context, sheet string, values []string) (int, error)
}
