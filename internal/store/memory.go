package store

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

var (
	// ErrEmptyStore is returned when no observation survived ingestion.
	ErrEmptyStore = errors.New("no valid observations in store")
)

// dateLayouts are tried in order when parsing a row's date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"2006-01",
}

// MemoryStore is a concurrency-safe in-memory observation store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: indicator id, then month index
	data map[string]map[int][]macro.Observation

	start, end time.Time
	count      int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int][]macro.Observation),
	}
}

// Ingest keeps rows with a non-empty indicator, a parseable date and a finite
// value. Everything else is dropped and only counted.
func (s *MemoryStore) Ingest(rows []macro.RawRow) macro.IngestStats {
	var stats macro.IngestStats

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		obs, ok := ParseRow(row)
		if !ok {
			stats.Dropped++
			continue
		}
		stats.Accepted++

		byMonth, ok := s.data[obs.Indicator]
		if !ok {
			byMonth = make(map[int][]macro.Observation)
			s.data[obs.Indicator] = byMonth
		}
		month := macro.MonthOf(obs.Timestamp)
		key := monthKey(month)
		byMonth[key] = append(byMonth[key], obs)

		if s.count == 0 || month.Before(s.start) {
			s.start = month
		}
		if s.count == 0 || month.After(s.end) {
			s.end = month
		}
		s.count++
	}
	return stats
}

// ParseRow converts a raw row into an observation.
func ParseRow(row macro.RawRow) (macro.Observation, bool) {
	indicator := strings.TrimSpace(row.Indicator)
	if indicator == "" {
		return macro.Observation{}, false
	}
	ts, ok := parseDate(row.Date)
	if !ok {
		return macro.Observation{}, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row.Value), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return macro.Observation{}, false
	}
	return macro.Observation{Indicator: indicator, Timestamp: ts, Value: value}, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			// Bucket by the calendar date as written, not the UTC instant.
			return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.UTC), true
		}
	}
	return time.Time{}, false
}

// ObservationsFor returns the indicator's observations inside period's month.
// Order is unspecified.
func (s *MemoryStore) ObservationsFor(indicator string, period time.Time) []macro.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMonth, ok := s.data[indicator]
	if !ok {
		return nil
	}
	found := byMonth[monthKey(macro.MonthOf(period))]
	out := make([]macro.Observation, len(found))
	copy(out, found)
	return out
}

// Indicators returns the distinct indicator ids present, sorted.
func (s *MemoryStore) Indicators() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DateRange returns the earliest and latest observed months.
func (s *MemoryStore) DateRange() (time.Time, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return time.Time{}, time.Time{}, ErrEmptyStore
	}
	return s.start, s.end, nil
}

// Observations returns every stored observation ordered by indicator, then time.
func (s *MemoryStore) Observations() []macro.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]macro.Observation, 0, s.count)
	for _, byMonth := range s.data {
		for _, obs := range byMonth {
			out = append(out, obs...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Indicator != out[j].Indicator {
			return out[i].Indicator < out[j].Indicator
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Len reports the number of stored observations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func monthKey(month time.Time) int {
	return month.Year()*12 + int(month.Month()) - 1
}
