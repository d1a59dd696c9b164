package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/macro-heatmap/internal/export"
	"github.com/i474232898/macro-heatmap/internal/macro"
)

var (
	gridMonths     int
	gridFrom       string
	gridTo         string
	gridIndicators string
	exportOut      string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load observations once and print the grid as a table",
	Long: `Load observations once and print the grid as a table, newest month first.

Example usage:
  macro-heatmap render                          # default window
  macro-heatmap render --months=12              # last 12 observed months
  macro-heatmap render --from=2020-01 --to=2020-12 --indicators=CPI,M2`,
	RunE: runRender,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load observations once and write the grid as an xlsx heatmap",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)

	for _, c := range []*cobra.Command{renderCmd, exportCmd} {
		c.Flags().IntVar(&gridMonths, "months", 0, "Number of months ending at --to (default DEFAULT_MONTHS)")
		c.Flags().StringVar(&gridFrom, "from", "", "First month, YYYY-MM")
		c.Flags().StringVar(&gridTo, "to", "", "Last month, YYYY-MM (default newest observed month)")
		c.Flags().StringVar(&gridIndicators, "indicators", "", "Comma-separated indicator ids (default all)")
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "macro-heatmap.xlsx", "Output file")
}

func gridQueryFromFlags() (macro.GridQuery, error) {
	q := macro.GridQuery{Months: gridMonths}
	var err error
	if gridFrom != "" {
		if q.From, err = macro.ParsePeriod(gridFrom); err != nil {
			return q, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if gridTo != "" {
		if q.To, err = macro.ParsePeriod(gridTo); err != nil {
			return q, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if gridIndicators != "" {
		for _, id := range strings.Split(gridIndicators, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.Indicators = append(q.Indicators, id)
			}
		}
	}
	return q, nil
}

func loadGrid(cmd *cobra.Command) (*macro.Grid, *macro.Snapshot, func(), error) {
	q, err := gridQueryFromFlags()
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := a.loadOnce(cmd.Context()); err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("no data: %w", err)
	}

	grid, snap, err := a.service.Grid(cmd.Context(), q)
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}
	return grid, snap, a.Close, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	grid, snap, done, err := loadGrid(cmd)
	if err != nil {
		return err
	}
	defer done()

	fmt.Printf("snapshot %s (%s, loaded %s)\n\n", snap.ID, snap.Source, snap.LoadedAt.Format(time.RFC3339))
	return export.WriteTable(os.Stdout, grid)
}

func runExport(cmd *cobra.Command, args []string) error {
	grid, _, done, err := loadGrid(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := writeXLSXFile(exportOut, grid); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d indicators x %d months)\n", exportOut, len(grid.Indicators), len(grid.Periods))
	return nil
}

// writeXLSXFile writes the heatmap to path. A failed close is reported since
// it can mean the spreadsheet never reached disk.
func writeXLSXFile(path string, grid *macro.Grid) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return export.WriteXLSX(file, grid)
}
