package providers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/macro-heatmap/internal/common"
	"github.com/i474232898/macro-heatmap/internal/macro"
)

var (
	indicatorAliases = []string{"indicator", "attribute", "series", "name"}
	dateAliases      = []string{"date", "timestamp", "datetime", "monthyear"}
	valueAliases     = []string{"value"}
)

// SheetCSVProvider reads a long-format CSV (one observation per line) from a
// published spreadsheet URL.
type SheetCSVProvider struct {
	name    string
	url     string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewSheetCSVProvider(client *http.Client, url string) *SheetCSVProvider {
	return &SheetCSVProvider{
		name: "sheet",
		url:  url,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("sheet", DefaultBreaker),
	}
}

// WithBackoff overrides the retry policy.
func (p *SheetCSVProvider) WithBackoff(b BackoffConfig) *SheetCSVProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *SheetCSVProvider) Name() string {
	return p.name
}

func (p *SheetCSVProvider) Fetch(ctx context.Context) ([]macro.RawRow, error) {
	if p.url == "" {
		return nil, fmt.Errorf("sheet csv url is not configured")
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return ParseCSV(resp.Body)
}

// ParseCSV reads rows out of a CSV whose header names the indicator, date
// and value columns. Short lines yield empty fields, which ingestion drops.
func ParseCSV(r io.Reader) ([]macro.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sheet csv: empty document")
		}
		return nil, fmt.Errorf("sheet csv: read header: %w", err)
	}

	indicatorCol := common.IndexOfAny(header, indicatorAliases...)
	dateCol := common.IndexOfAny(header, dateAliases...)
	valueCol := common.IndexOfAny(header, valueAliases...)
	if indicatorCol < 0 || dateCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("sheet csv: header %v lacks indicator, date or value column", header)
	}

	rows := make([]macro.RawRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// One mangled line should not sink the batch.
				continue
			}
			return nil, fmt.Errorf("sheet csv: %w", err)
		}
		rows = append(rows, macro.RawRow{
			Indicator: field(record, indicatorCol),
			Date:      field(record, dateCol),
			Value:     field(record, valueCol),
		})
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
