// Package export renders composed grids for people: a terminal table and an
// xlsx heatmap. Rows are periods, newest first; columns are indicators in
// grid order.
package export

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

// StatusColors mirrors the dashboard legend.
var StatusColors = map[macro.Status]string{
	macro.StatusHealthy: "#2E8B57",
	macro.StatusCaution: "#F4D03F",
	macro.StatusWarning: "#E74C3C",
	macro.StatusMissing: "#D3D3D3",
}

var statusGlyphs = map[macro.Status]string{
	macro.StatusHealthy: "+",
	macro.StatusCaution: "~",
	macro.StatusWarning: "!",
	macro.StatusMissing: " ",
}

// newestFirst returns period column indexes ordered newest first.
func newestFirst(periods []time.Time) []int {
	order := make([]int, len(periods))
	for i := range periods {
		order[i] = len(periods) - 1 - i
	}
	return order
}

// WriteTable prints the grid as an aligned text table. Each cell is the
// display text prefixed by a status glyph: + healthy, ~ caution, ! warning.
func WriteTable(w io.Writer, grid *macro.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "Month\t")
	for _, ind := range grid.Indicators {
		fmt.Fprintf(tw, "%s\t", ind.Label)
	}
	fmt.Fprintln(tw)

	for _, j := range newestFirst(grid.Periods) {
		fmt.Fprintf(tw, "%s\t", grid.Periods[j].Format(macro.PeriodLabelLayout))
		for i := range grid.Indicators {
			cell := grid.Cells[i][j]
			fmt.Fprintf(tw, "%s%s\t", statusGlyphs[cell.Status], cell.Display)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
