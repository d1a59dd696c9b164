package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/macro-heatmap/internal/export"
	"github.com/i474232898/macro-heatmap/internal/macro"
	"github.com/i474232898/macro-heatmap/internal/store"
)

func exportGrid(t *testing.T) *macro.Grid {
	t.Helper()
	catalog, err := macro.NewCatalog([]macro.IndicatorConfig{{
		ID:         "CPI",
		Method:     macro.Point(),
		Direction:  macro.HigherIsWorse,
		Thresholds: macro.Thresholds{Caution: 2.0, Warning: 3.5},
	}})
	require.NoError(t, err)

	st := store.NewMemoryStore()
	st.Ingest([]macro.RawRow{{Indicator: "CPI", Date: "2024-01-05", Value: "3.1"}})

	period := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	grid, err := macro.Compose(context.Background(), catalog, nil, []time.Time{period}, st)
	require.NoError(t, err)
	return grid
}

func TestWriteXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.xlsx")
	require.NoError(t, writeXLSXFile(path, exportGrid(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue(export.SheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "3.10", value)
}

func TestWriteXLSXFileReportsCreateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "grid.xlsx")
	assert.Error(t, writeXLSXFile(path, exportGrid(t)))
}
