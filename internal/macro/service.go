package macro

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/macro-heatmap/internal/metrics"
)

var (
	// ErrNotLoaded is returned before any reload has published a store.
	ErrNotLoaded = errors.New("no observations loaded")
	// ErrNoProviders is returned when there is nothing to load from.
	ErrNoProviders = errors.New("no data providers configured")
)

// Snapshot source values.
const (
	SourceLive    = "live"
	SourceArchive = "archive"
)

// Snapshot is one published, read-only generation of the observation store.
type Snapshot struct {
	ID       string           `json:"id"`
	LoadedAt time.Time        `json:"loadedAt"`
	Source   string           `json:"source"`
	Stats    IngestStats      `json:"stats"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Store    ObservationStore `json:"-"`
}

// GridQuery selects what to compose. Zero values fall back to defaults:
// every catalog indicator, and the latest default-months window ending at
// the newest observed month.
type GridQuery struct {
	Indicators []string
	Periods    []time.Time
	From       time.Time
	To         time.Time
	Months     int
}

// Service reloads observations from providers and composes grids from the
// currently published snapshot.
type Service struct {
	catalog       *Catalog
	newStore      func() ObservationStore
	providers     []Provider
	archive       Archive
	metrics       *metrics.Metrics
	defaultMonths int

	mu      sync.RWMutex
	current *Snapshot
}

// NewService creates a new Service. newStore must return an empty store; a
// fresh one is built on every reload.
func NewService(catalog *Catalog, newStore func() ObservationStore, providers []Provider) *Service {
	return &Service{
		catalog:       catalog,
		newStore:      newStore,
		providers:     providers,
		defaultMonths: 36,
	}
}

// WithArchive enables fallback to, and persistence of, the last good load.
func (s *Service) WithArchive(a Archive) *Service {
	s.archive = a
	return s
}

// WithMetrics attaches collectors.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithDefaultMonths sets the window used when a query names no periods.
func (s *Service) WithDefaultMonths(n int) *Service {
	if n > 0 {
		s.defaultMonths = n
	}
	return s
}

// Catalog returns the indicator table.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Refresh fetches every provider concurrently, ingests the union into a new
// store and publishes it. Failing providers are logged and skipped. When no
// usable row arrives the archive is tried; if that is empty too the previous
// snapshot stays in place and the store's empty error is returned.
func (s *Service) Refresh(ctx context.Context) error {
	if len(s.providers) == 0 && s.archive == nil {
		return ErrNoProviders
	}

	rows := s.fetchAll(ctx)

	st := s.newStore()
	stats := st.Ingest(rows)
	s.metrics.RowsIngested(stats.Accepted, stats.Dropped)
	source := SourceLive
	log.Info().Int("accepted", stats.Accepted).Int("dropped", stats.Dropped).Msg("ingested provider rows")

	if stats.Accepted == 0 && s.archive != nil {
		log.Warn().Msg("no usable provider rows; falling back to archive")
		archived, err := s.archive.LoadObservations(ctx)
		if err != nil {
			log.Error().Err(err).Msg("archive load failed")
		} else {
			st = s.newStore()
			stats = st.Ingest(archived)
			source = SourceArchive
		}
	}

	now := time.Now().UTC()
	start, end, err := st.DateRange()
	if err != nil {
		s.metrics.Refresh("empty", now)
		log.Warn().Err(err).Msg("reload produced no observations; keeping last good snapshot if any")
		return err
	}

	snap := &Snapshot{
		ID:       uuid.NewString(),
		LoadedAt: now,
		Source:   source,
		Stats:    stats,
		Start:    start,
		End:      end,
		Store:    st,
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	s.metrics.Refresh(source, now)

	log.Info().
		Str("snapshot", snap.ID).
		Str("source", source).
		Int("observations", stats.Accepted).
		Str("start", start.Format(PeriodKeyLayout)).
		Str("end", end.Format(PeriodKeyLayout)).
		Msg("published observation snapshot")

	if source == SourceLive && s.archive != nil {
		if err := s.archive.SaveObservations(ctx, snap.ID, st.Observations()); err != nil {
			log.Error().Err(err).Str("snapshot", snap.ID).Msg("archive save failed")
		}
	}
	return nil
}

func (s *Service) fetchAll(ctx context.Context) []RawRow {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		rows []RawRow
	)

	for _, p := range s.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetched, err := p.Fetch(ctx)
			if err != nil {
				// Partial success is fine; the other providers still count.
				s.metrics.ProviderFailure(p.Name())
				log.Warn().Err(err).Str("provider", p.Name()).Msg("provider fetch failed")
				return
			}
			log.Debug().Str("provider", p.Name()).Int("rows", len(fetched)).Msg("provider fetch complete")

			mu.Lock()
			rows = append(rows, fetched...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return rows
}

// Snapshot returns the currently published snapshot.
func (s *Service) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Periods lists every month of the current snapshot, newest first.
func (s *Service) Periods() ([]time.Time, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	periods := BuildPeriods(snap.Start, snap.End)
	for i, j := 0, len(periods)-1; i < j; i, j = i+1, j-1 {
		periods[i], periods[j] = periods[j], periods[i]
	}
	return periods, nil
}

// Grid composes the grid selected by q against the current snapshot.
func (s *Service) Grid(ctx context.Context, q GridQuery) (*Grid, *Snapshot, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	grid, err := Compose(ctx, s.catalog, dedupe(q.Indicators), s.resolvePeriods(snap, q), snap.Store)
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int, len(Statuses))
	for status, n := range grid.StatusCounts() {
		counts[string(status)] = n
	}
	s.metrics.Composed(counts, time.Since(started))
	return grid, snap, nil
}

func (s *Service) resolvePeriods(snap *Snapshot, q GridQuery) []time.Time {
	if len(q.Periods) > 0 {
		return q.Periods
	}
	end := snap.End
	if !q.To.IsZero() {
		end = q.To
	}
	if !q.From.IsZero() {
		return BuildPeriods(q.From, end)
	}
	months := q.Months
	if months <= 0 {
		months = s.defaultMonths
	}
	return LatestPeriods(end, months)
}

// dedupe drops repeated ids, keeping first occurrences. Nil stays nil.
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
