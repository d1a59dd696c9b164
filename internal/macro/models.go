package macro

import (
	"time"
)

// Status is the health classification of a single indicator-month cell.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusCaution Status = "caution"
	StatusWarning Status = "warning"
	StatusMissing Status = "missing"
)

// Statuses lists every status from best to worst, missing last.
var Statuses = []Status{StatusHealthy, StatusCaution, StatusWarning, StatusMissing}

// RawRow is an unparsed record as delivered by a data source.
// Every field is kept as text; the observation store decides what survives.
type RawRow struct {
	Indicator string `json:"indicator"`
	Date      string `json:"date"`
	Value     string `json:"value"`
}

// Observation is a cleaned data point. Value is always finite.
type Observation struct {
	Indicator string    `json:"indicator"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Value     float64   `json:"value"`
}

// IngestStats reports how many rows an ingest call kept and dropped.
type IngestStats struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// Add returns the element-wise sum of two stats.
func (s IngestStats) Add(other IngestStats) IngestStats {
	return IngestStats{
		Accepted: s.Accepted + other.Accepted,
		Dropped:  s.Dropped + other.Dropped,
	}
}

// Cell is one classified indicator-month value.
type Cell struct {
	IndicatorID string    `json:"indicator"`
	Period      time.Time `json:"period"`
	Value       *float64  `json:"value"` // nil when no value could be computed
	Status      Status    `json:"status"`
	Display     string    `json:"display"`
}
