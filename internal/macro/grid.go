package macro

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// MissingDisplay is shown for cells without a value.
const MissingDisplay = "N/A"

// GridIndicator describes one row of the grid.
type GridIndicator struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Configured bool              `json:"configured"`
	Method     AggregationMethod `json:"aggregation"`
}

// Grid is the dense indicators x periods matrix of classified cells.
// Cells[i][j] belongs to Indicators[i] and Periods[j].
type Grid struct {
	Indicators []GridIndicator `json:"indicators"`
	Periods    []time.Time     `json:"periods"`
	Cells      [][]Cell        `json:"cells"`

	rows map[string]int
	cols map[int]int
}

// Cell looks a cell up by indicator id and period.
func (g *Grid) Cell(indicator string, period time.Time) (Cell, bool) {
	i, ok := g.rows[indicator]
	if !ok {
		return Cell{}, false
	}
	j, ok := g.cols[monthIndex(MonthOf(period))]
	if !ok {
		return Cell{}, false
	}
	return g.Cells[i][j], true
}

// StatusCounts tallies cells per status.
func (g *Grid) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, row := range g.Cells {
		for _, cell := range row {
			counts[cell.Status]++
		}
	}
	return counts
}

// Compose builds the grid for the given indicator ids and periods. A nil ids
// slice means every catalog indicator, in catalog order. Ids without a config
// produce rows of missing cells. Rows are computed in parallel; the only
// error is ctx cancellation.
func Compose(ctx context.Context, catalog *Catalog, ids []string, periods []time.Time, src ObservationSource) (*Grid, error) {
	if ids == nil {
		ids = catalog.IDs()
	}

	grid := &Grid{
		Indicators: make([]GridIndicator, len(ids)),
		Periods:    make([]time.Time, len(periods)),
		Cells:      make([][]Cell, len(ids)),
		rows:       make(map[string]int, len(ids)),
		cols:       make(map[int]int, len(periods)),
	}
	for j, p := range periods {
		p = MonthOf(p)
		grid.Periods[j] = p
		grid.cols[monthIndex(p)] = j
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		grid.rows[id] = i
		cfg, configured := catalog.Lookup(id)
		grid.Indicators[i] = GridIndicator{
			ID:         id,
			Label:      id,
			Configured: configured,
		}
		if configured {
			grid.Indicators[i].Label = cfg.DisplayLabel()
			grid.Indicators[i].Method = cfg.Method
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grid.Cells[i] = composeRow(id, cfg, configured, grid.Periods, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}

func composeRow(id string, cfg IndicatorConfig, configured bool, periods []time.Time, src ObservationSource) []Cell {
	row := make([]Cell, len(periods))
	agg := NewAggregator(src)
	for j, period := range periods {
		cell := Cell{
			IndicatorID: id,
			Period:      period,
			Status:      StatusMissing,
			Display:     MissingDisplay,
		}
		if configured {
			v, ok := agg.Aggregate(cfg, period)
			cell.Status = Classify(cfg, v, ok)
			if ok {
				value := v
				cell.Value = &value
				cell.Display = FormatValue(v, cfg.Method.Kind == MethodYearOverYear)
			}
		}
		row[j] = cell
	}
	return row
}

// FormatValue renders a value for display: thousands-grouped integers from
// 1000 upward in magnitude, two decimals below that.
func FormatValue(v float64, percent bool) string {
	var s string
	if math.Abs(v) >= 1000 {
		s = humanize.Commaf(math.Round(v))
	} else {
		s = fmt.Sprintf("%.2f", v)
	}
	if percent {
		s += "%"
	}
	return s
}
