package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

const (
	DefaultFREDBaseURL = "https://api.stlouisfed.org/fred"
	fredConcurrency    = 4
)

// fredBreaker tolerates more failures than DefaultBreaker: one refresh issues
// a request per series, so a single bad reload can fail many in a row. The
// shorter open timeout lets the next scheduled reload retry.
var fredBreaker = BreakerConfig{
	ConsecutiveFailures: 20,
	HalfOpenRequests:    fredConcurrency,
	Interval:            1 * time.Minute,
	OpenTimeout:         30 * time.Second,
}

// fredBackoff retries less eagerly per series than DefaultBackoff since a
// refresh multiplies retries by the series count.
var fredBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 1 * time.Second,
	MaxInterval:     4 * time.Second,
}

// FREDSeries binds an indicator id to the FRED series that feeds it.
type FREDSeries struct {
	IndicatorID string
	SeriesID    string
}

// SeriesFromCatalog collects every indicator that names a FRED series.
func SeriesFromCatalog(catalog *macro.Catalog) []FREDSeries {
	var series []FREDSeries
	for _, cfg := range catalog.All() {
		if strings.TrimSpace(cfg.FREDSeries) == "" {
			continue
		}
		series = append(series, FREDSeries{IndicatorID: cfg.ID, SeriesID: cfg.FREDSeries})
	}
	return series
}

// FREDProvider pulls series observations from the FRED API.
type FREDProvider struct {
	name    string
	apiKey  string
	baseURL string
	series  []FREDSeries
	since   time.Time
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewFREDProvider(client *http.Client, baseURL, apiKey string, series []FREDSeries) *FREDProvider {
	if baseURL == "" {
		baseURL = DefaultFREDBaseURL
	}
	return &FREDProvider{
		name:    "fred",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		series:  series,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: fredBackoff,
		},
		circuit: newCircuitBreaker("fred", fredBreaker),
	}
}

// WithBackoff overrides the retry policy.
func (p *FREDProvider) WithBackoff(b BackoffConfig) *FREDProvider {
	p.httpCfg.Backoff = b
	return p
}

// Since limits requests to observations on or after t. Zero means full history.
func (p *FREDProvider) Since(t time.Time) *FREDProvider {
	p.since = t
	return p
}

func (p *FREDProvider) Name() string {
	return p.name
}

// Fetch requests every configured series. A failing series is logged and
// skipped; Fetch only errors when every series failed.
func (p *FREDProvider) Fetch(ctx context.Context) ([]macro.RawRow, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("fred api key is not configured")
	}
	if len(p.series) == 0 {
		return nil, fmt.Errorf("fred: no series configured")
	}

	var (
		mu       sync.Mutex
		rows     []macro.RawRow
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fredConcurrency)
	for _, s := range p.series {
		g.Go(func() error {
			fetched, err := p.fetchSeries(gctx, s)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				log.Warn().Err(err).Str("series", s.SeriesID).Str("indicator", s.IndicatorID).Msg("fred series fetch failed")
				return nil
			}
			rows = append(rows, fetched...)
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(p.series) {
		return nil, fmt.Errorf("fred: all %d series failed: %w", failures, lastErr)
	}
	return rows, nil
}

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

func (p *FREDProvider) fetchSeries(ctx context.Context, s FREDSeries) ([]macro.RawRow, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("series_id", s.SeriesID)
		values.Set("api_key", p.apiKey)
		values.Set("file_type", "json")
		if !p.since.IsZero() {
			values.Set("observation_start", p.since.Format("2006-01-02"))
		}

		u := fmt.Sprintf("%s/series/observations?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload fredObservations
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ErrorMessage != "" {
		return nil, errors.New(payload.ErrorMessage)
	}

	rows := make([]macro.RawRow, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		// FRED marks gaps with "."; ingestion drops them.
		rows = append(rows, macro.RawRow{
			Indicator: s.IndicatorID,
			Date:      o.Date,
			Value:     o.Value,
		})
	}
	return rows, nil
}
