package macro_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

func cpiConfig() macro.IndicatorConfig {
	return macro.IndicatorConfig{
		ID:         "CPI",
		Method:     macro.Point(),
		Direction:  macro.HigherIsWorse,
		Thresholds: macro.Thresholds{Caution: 2.0, Warning: 3.5},
	}
}

func m2Config() macro.IndicatorConfig {
	return macro.IndicatorConfig{
		ID:         "M2",
		Label:      "M2 Money Supply",
		Method:     macro.TrailingWindow(12),
		Direction:  macro.LowerIsWorse,
		Thresholds: macro.Thresholds{Caution: 21000, Warning: 19000},
	}
}

func TestComposeCPIScenario(t *testing.T) {
	st := newStore(t,
		row("CPI", "2024-01-05", 3.1),
		row("CPI", "2024-01-20", 3.3),
		row("CPI", "2024-02-10", 2.9),
	)
	catalog := newCatalog(t, cpiConfig())
	periods := macro.BuildPeriods(month(2024, time.January), month(2024, time.March))

	grid, err := macro.Compose(context.Background(), catalog, nil, periods, st)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 1)
	require.Len(t, grid.Cells[0], 3)

	jan := grid.Cells[0][0]
	require.NotNil(t, jan.Value)
	assert.InDelta(t, 3.2, *jan.Value, 1e-9)
	assert.Equal(t, macro.StatusCaution, jan.Status)
	assert.Equal(t, "3.20", jan.Display)

	feb := grid.Cells[0][1]
	require.NotNil(t, feb.Value)
	assert.InDelta(t, 2.9, *feb.Value, 1e-9)
	assert.Equal(t, macro.StatusCaution, feb.Status)
	assert.Equal(t, "2.90", feb.Display)

	mar := grid.Cells[0][2]
	assert.Nil(t, mar.Value)
	assert.Equal(t, macro.StatusMissing, mar.Status)
	assert.Equal(t, macro.MissingDisplay, mar.Display)
}

func TestComposeM2MissingMonthInWindow(t *testing.T) {
	// Jan..Nov 2024 populated, December missing.
	st := newStore(t, monthly("M2", month(2024, time.January), repeat(22000, 11)...)...)
	catalog := newCatalog(t, m2Config())

	grid, err := macro.Compose(context.Background(), catalog, nil, []time.Time{month(2024, time.December)}, st)
	require.NoError(t, err)

	cell := grid.Cells[0][0]
	assert.Nil(t, cell.Value)
	assert.Equal(t, macro.StatusMissing, cell.Status)
	assert.Equal(t, macro.MissingDisplay, cell.Display)
}

func TestComposeM2FullWindow(t *testing.T) {
	st := newStore(t, monthly("M2", month(2024, time.January), repeat(22000, 12)...)...)
	catalog := newCatalog(t, m2Config())

	grid, err := macro.Compose(context.Background(), catalog, nil, []time.Time{month(2024, time.December)}, st)
	require.NoError(t, err)

	cell := grid.Cells[0][0]
	require.NotNil(t, cell.Value)
	assert.InDelta(t, 22000, *cell.Value, 1e-9)
	assert.Equal(t, macro.StatusHealthy, cell.Status)
	assert.Equal(t, "22,000", cell.Display)
	assert.Equal(t, "M2 Money Supply", grid.Indicators[0].Label)
}

func TestComposeYearOverYearDisplaysPercent(t *testing.T) {
	st := newStore(t,
		row("CPI", "2023-04-10", 300),
		row("CPI", "2024-04-10", 309),
	)
	cfg := cpiConfig()
	cfg.Method = macro.YearOverYear()
	catalog := newCatalog(t, cfg)

	grid, err := macro.Compose(context.Background(), catalog, nil, []time.Time{month(2024, time.April)}, st)
	require.NoError(t, err)
	assert.Equal(t, "3.00%", grid.Cells[0][0].Display)
	assert.Equal(t, macro.StatusCaution, grid.Cells[0][0].Status)
}

func TestComposeUnconfiguredIndicatorIsMissingRow(t *testing.T) {
	st := newStore(t,
		row("CPI", "2024-01-05", 3.1),
		row("Mystery", "2024-01-05", 1),
	)
	catalog := newCatalog(t, cpiConfig())
	periods := macro.BuildPeriods(month(2024, time.January), month(2024, time.February))

	grid, err := macro.Compose(context.Background(), catalog, []string{"Mystery", "CPI"}, periods, st)
	require.NoError(t, err)

	require.Len(t, grid.Indicators, 2)
	assert.Equal(t, "Mystery", grid.Indicators[0].ID)
	assert.False(t, grid.Indicators[0].Configured)
	assert.True(t, grid.Indicators[1].Configured)
	for _, cell := range grid.Cells[0] {
		assert.Equal(t, macro.StatusMissing, cell.Status)
		assert.Equal(t, macro.MissingDisplay, cell.Display)
		assert.Nil(t, cell.Value)
	}
	assert.Equal(t, macro.StatusCaution, grid.Cells[1][0].Status)
}

func TestComposeIsDenseAndIdempotent(t *testing.T) {
	rows := monthly("CPI", month(2023, time.January), 1, 2.5, 3, 4, 2.2, 1.9, 3.7, 2.8, 3.1, 2, 2, 5, 1.5, 2.4)
	rows = append(rows, monthly("M2", month(2023, time.January), repeat(20500, 14)...)...)
	st := newStore(t, rows...)
	catalog := newCatalog(t, cpiConfig(), m2Config())
	periods := macro.BuildPeriods(month(2023, time.June), month(2024, time.April))

	first, err := macro.Compose(context.Background(), catalog, nil, periods, st)
	require.NoError(t, err)
	second, err := macro.Compose(context.Background(), catalog, nil, periods, st)
	require.NoError(t, err)

	require.Len(t, first.Cells, 2)
	for _, row := range first.Cells {
		assert.Len(t, row, len(periods))
	}
	assert.Equal(t, first.Cells, second.Cells)
	assert.Equal(t, first.StatusCounts(), second.StatusCounts())
}

func TestComposeEmptyPeriods(t *testing.T) {
	st := newStore(t, row("CPI", "2024-01-05", 3.1))
	grid, err := macro.Compose(context.Background(), newCatalog(t, cpiConfig()), nil, nil, st)
	require.NoError(t, err)
	require.Len(t, grid.Cells, 1)
	assert.Empty(t, grid.Cells[0])
}

func TestComposeHonorsCancellation(t *testing.T) {
	st := newStore(t, row("CPI", "2024-01-05", 3.1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := macro.Compose(ctx, newCatalog(t, cpiConfig()), nil, []time.Time{month(2024, time.January)}, st)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGridCellLookup(t *testing.T) {
	st := newStore(t, row("CPI", "2024-01-05", 3.1))
	periods := macro.BuildPeriods(month(2023, time.December), month(2024, time.January))
	grid, err := macro.Compose(context.Background(), newCatalog(t, cpiConfig()), nil, periods, st)
	require.NoError(t, err)

	cell, ok := grid.Cell("CPI", time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "3.10", cell.Display)

	_, ok = grid.Cell("CPI", month(2024, time.February))
	assert.False(t, ok)
	_, ok = grid.Cell("GDP", month(2024, time.January))
	assert.False(t, ok)

	counts := grid.StatusCounts()
	assert.Equal(t, 1, counts[macro.StatusCaution])
	assert.Equal(t, 1, counts[macro.StatusMissing])
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value   float64
		percent bool
		want    string
	}{
		{3.2, false, "3.20"},
		{0, false, "0.00"},
		{-0.456, false, "-0.46"},
		{999.994, false, "999.99"},
		{1000, false, "1,000"},
		{21543.6, false, "21,544"},
		{-12345.4, false, "-12,345"},
		{1234567, false, "1,234,567"},
		{1e19, false, "10,000,000,000,000,000,000"},
		{-2.5e19, false, "-25,000,000,000,000,000,000"},
		{3.14159, true, "3.14%"},
		{-10, true, "-10.00%"},
		{1500, true, "1,500%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, macro.FormatValue(tt.value, tt.percent), "value %v", tt.value)
	}
}
