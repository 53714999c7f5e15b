// Package memory provides an in-process record store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/recares/dme-matcher/internal/domain"
	"github.com/recares/dme-matcher/internal/service/listings"
)

// SheetRepo implements listings.Repository in memory. It is safe for concurrent use.
type SheetRepo struct {
	mu     sync.RWMutex
	sheets map[string]*domain.Grid
}

// NewSheetRepo creates an empty store.
func NewSheetRepo() *SheetRepo {
	return &SheetRepo{sheets: make(map[string]*domain.Grid)}
}

// Seed replaces a sheet with the given header and rows.
func (r *SheetRepo) Seed(sheet string, header []string, rows ...[]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &domain.Grid{Header: append([]string(nil), header...)}
	for _, row := range rows {
		g.Rows = append(g.Rows, append([]string(nil), row...))
	}
	r.sheets[sheet] = g
}

func (r *SheetRepo) Snapshot(_ context.Context, sheet string) (domain.Grid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.sheets[sheet]
	if !ok {
		return domain.Grid{}, nil
	}
	out := domain.Grid{Header: append([]string(nil), g.Header...)}
	out.Rows = make([][]string, len(g.Rows))
	for i, row := range g.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (r *SheetRepo) WriteCell(_ context.Context, sheet string, u domain.CellUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.sheets[sheet]
	if !ok || u.Row < 1 || u.Row > len(g.Rows) {
		return fmt.Errorf("%s row %d: %w", sheet, u.Row, listings.ErrRowNotFound)
	}
	if u.Col < 0 {
		return fmt.Errorf("%s row %d: invalid column %d", sheet, u.Row, u.Col)
	}
	row := g.Rows[u.Row-1]
	for len(row) <= u.Col {
		row = append(row, "")
	}
	row[u.Col] = u.Value
	g.Rows[u.Row-1] = row
	return nil
}

func (r *SheetRepo) AppendColumn(_ context.Context, sheet, label string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.sheet(sheet)
	g.Header = append(g.Header, label)
	return len(g.Header) - 1, nil
}

func (r *SheetRepo) AppendRow(_ context.Context, sheet string, values []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.sheet(sheet)
	g.Rows = append(g.Rows, append([]string(nil), values...))
	return len(g.Rows), nil
}

func (r *SheetRepo) sheet(name string) *domain.Grid {
	g, ok := r.sheets[name]
	if !ok {
		g = &domain.Grid{}
		r.sheets[name] = g
	}
	return g
}
