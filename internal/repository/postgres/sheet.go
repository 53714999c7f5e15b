package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/recares/dme-matcher/internal/domain"
	"github.com/recares/dme-matcher/internal/service/listings"
)

// SheetRepo implements listings.Repository against PostgreSQL.
type SheetRepo struct{ db *sql.DB }

// NewSheetRepo creates a Postgres-backed record store.
func NewSheetRepo(db *sql.DB) *SheetRepo { return &SheetRepo{db: db} }

func (r *SheetRepo) Snapshot(ctx context.Context, sheet string) (domain.Grid, error) {
	var g domain.Grid

	hdr, err := r.db.QueryContext(ctx,
		`SELECT label FROM sheet_columns WHERE sheet = $1 ORDER BY col`, sheet)
	if err != nil {
		return g, fmt.Errorf("read header: %w", err)
	}
	defer hdr.Close()
	for hdr.Next() {
		var label string
		if err := hdr.Scan(&label); err != nil {
			return g, fmt.Errorf("scan header: %w", err)
		}
		g.Header = append(g.Header, label)
	}
	if err := hdr.Err(); err != nil {
		return g, fmt.Errorf("read header: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.row_num, c.col, c.value
		FROM sheet_rows r
		LEFT JOIN sheet_cells c ON c.sheet = r.sheet AND c.row_num = r.row_num
		WHERE r.sheet = $1
		ORDER BY r.row_num, c.col
	`, sheet)
	if err != nil {
		return g, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rowNum int
			col    sql.NullInt64
			value  sql.NullString
		)
		if err := rows.Scan(&rowNum, &col, &value); err != nil {
			return g, fmt.Errorf("scan cell: %w", err)
		}
		// rows are numbered from 1 without gaps; pad defensively if one is missing
		for len(g.Rows) < rowNum {
			g.Rows = append(g.Rows, nil)
		}
		if !col.Valid {
			continue
		}
		row := g.Rows[rowNum-1]
		for len(row) <= int(col.Int64) {
			row = append(row, "")
		}
		row[col.Int64] = value.String
		g.Rows[rowNum-1] = row
	}
	if err := rows.Err(); err != nil {
		return g, fmt.Errorf("read rows: %w", err)
	}
	return g, nil
}

func (r *SheetRepo) WriteCell(ctx context.Context, sheet string, u domain.CellUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sheet_cells (sheet, row_num, col, value)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM sheet_rows WHERE sheet = $1 AND row_num = $2)
		ON CONFLICT (sheet, row_num, col) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, sheet, u.Row, u.Col, u.Value)
	if err != nil {
		return fmt.Errorf("write cell: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s row %d: %w", sheet, u.Row, listings.ErrRowNotFound)
	}
	return nil
}

func (r *SheetRepo) AppendColumn(ctx context.Context, sheet, label string) (int, error) {
	var col int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sheet_columns (sheet, col, label)
		SELECT $1, COALESCE(MAX(col) + 1, 0), $2 FROM sheet_columns WHERE sheet = $1
		RETURNING col
	`, sheet, label).Scan(&col)
	if err != nil {
		return 0, fmt.Errorf("append column: %w", err)
	}
	return col, nil
}

func (r *SheetRepo) AppendRow(ctx context.Context, sheet string, values []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	defer tx.Rollback()

	var rowNum int
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO sheet_rows (sheet, row_num)
		SELECT $1, COALESCE(MAX(row_num), 0) + 1 FROM sheet_rows WHERE sheet = $1
		RETURNING row_num
	`, sheet).Scan(&rowNum); err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sheet_cells (sheet, row_num, col, value)
		SELECT $1, $2, c.ord - 1, c.value
		FROM unnest($3::text[]) WITH ORDINALITY AS c(value, ord)
	`, sheet, rowNum, pq.Array(values)); err != nil {
		return 0, fmt.Errorf("append cells: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	return rowNum, nil
}
