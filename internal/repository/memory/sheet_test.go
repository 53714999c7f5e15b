package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recares/dme-matcher/internal/domain"
	"github.com/recares/dme-matcher/internal/service/listings"
)

func TestSheetRepo_AppendAndWrite(t *testing.T) {
	repo := NewSheetRepo()
	ctx := context.Background()
	repo.Seed("Main", []string{"Timestamp", "Email"})

	row, err := repo.AppendRow(ctx, "Main", []string{"2026-01-01T00:00:00Z", "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, row)

	col, err := repo.AppendColumn(ctx, "Main", "Opt Out Status")
	require.NoError(t, err)
	assert.Equal(t, 2, col)

	require.NoError(t, repo.WriteCell(ctx, "Main", domain.CellUpdate{Row: 1, Col: 2, Value: "Opted Out"}))

	g, err := repo.Snapshot(ctx, "Main")
	require.NoError(t, err)
	assert.Equal(t, "Opted Out", g.Cell(1, 2))
	assert.Equal(t, "Opt Out Status", g.Cell(0, 2))
}

func TestSheetRepo_SnapshotIsACopy(t *testing.T) {
	repo := NewSheetRepo()
	repo.Seed("Main", []string{"A"}, []string{"1"})

	g, _ := repo.Snapshot(context.Background(), "Main")
	g.Rows[0][0] = "changed"

	again, _ := repo.Snapshot(context.Background(), "Main")
	assert.Equal(t, "1", again.Cell(1, 0))
}

func TestSheetRepo_WriteMissingRow(t *testing.T) {
	repo := NewSheetRepo()
	repo.Seed("Main", []string{"A"})

	err := repo.WriteCell(context.Background(), "Main", domain.CellUpdate{Row: 3, Col: 0, Value: "x"})
	assert.ErrorIs(t, err, listings.ErrRowNotFound)
}

func TestSheetRepo_UnknownSheetIsEmpty(t *testing.T) {
	g, err := NewSheetRepo().Snapshot(context.Background(), "Opt Out")
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}
