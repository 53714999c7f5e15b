package domain

// Grid is a full snapshot of one sheet: the header row followed by data rows.
// Row indices used throughout the codebase are grid indices, so the first data
// row is 1 and the header is row 0.
type Grid struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Cell returns the value at (row, col) in grid coordinates, or "" when the
// position is outside the populated range.
func (g Grid) Cell(row, col int) string {
	if row == 0 {
		return cellAt(g.Header, col)
	}
	if row < 1 || row > len(g.Rows) {
		return ""
	}
	return cellAt(g.Rows[row-1], col)
}

// Len returns the number of data rows.
func (g Grid) Len() int { return len(g.Rows) }

func cellAt(values []string, col int) string {
	if col < 0 || col >= len(values) {
		return ""
	}
	return values[col]
}

// CellUpdate is a single targeted write against a sheet.
type CellUpdate struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}
