package macro_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/macro-heatmap/internal/macro"
	"github.com/i474232898/macro-heatmap/internal/store"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func row(indicator, date string, value float64) macro.RawRow {
	return macro.RawRow{
		Indicator: indicator,
		Date:      date,
		Value:     strconv.FormatFloat(value, 'g', -1, 64),
	}
}

// monthly returns one mid-month row per value, starting at start.
func monthly(indicator string, start time.Time, values ...float64) []macro.RawRow {
	rows := make([]macro.RawRow, 0, len(values))
	for i, v := range values {
		day := macro.AddMonths(start, i).AddDate(0, 0, 14)
		rows = append(rows, row(indicator, day.Format("2006-01-02"), v))
	}
	return rows
}

func newStore(t *testing.T, rows ...macro.RawRow) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	stats := st.Ingest(rows)
	require.Equal(t, len(rows), stats.Accepted, "all fixture rows should be valid")
	return st
}

func newCatalog(t *testing.T, configs ...macro.IndicatorConfig) *macro.Catalog {
	t.Helper()
	catalog, err := macro.NewCatalog(configs)
	require.NoError(t, err)
	return catalog
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
