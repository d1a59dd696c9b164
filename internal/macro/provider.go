package macro

import (
	"context"
	"time"
)

// Provider abstracts a raw observation source (published sheet, FRED, ...).
// Fetch is a single blocking call that returns a complete batch.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]RawRow, error)
}

// ObservationSource is the read side of the observation store used by
// aggregation. Implementations must be safe for concurrent readers.
type ObservationSource interface {
	ObservationsFor(indicator string, period time.Time) []Observation
}

// ObservationStore is the contract the in-memory store must satisfy.
type ObservationStore interface {
	ObservationSource
	Ingest(rows []RawRow) IngestStats
	Indicators() []string
	DateRange() (time.Time, time.Time, error)
	Observations() []Observation
}

// Archive keeps the last good set of observations across restarts.
type Archive interface {
	SaveObservations(ctx context.Context, snapshotID string, observations []Observation) error
	LoadObservations(ctx context.Context) ([]RawRow, error)
}
