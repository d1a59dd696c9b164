package macro

import (
	"math"
	"sort"
	"time"
)

type pointKey struct {
	indicator string
	month     int
}

type pointValue struct {
	value float64
	ok    bool
}

// Aggregator derives one value per (indicator, month) from an observation
// source. It memoizes monthly medians, so an Aggregator is not safe for
// concurrent use; give each goroutine its own.
type Aggregator struct {
	src    ObservationSource
	points map[pointKey]pointValue
}

// NewAggregator creates an Aggregator reading from src.
func NewAggregator(src ObservationSource) *Aggregator {
	return &Aggregator{
		src:    src,
		points: make(map[pointKey]pointValue),
	}
}

// Aggregate computes the value for cfg at period using cfg's method.
// The boolean is false when no value can be computed.
func (a *Aggregator) Aggregate(cfg IndicatorConfig, period time.Time) (float64, bool) {
	switch cfg.Method.Kind {
	case MethodPoint:
		return a.Point(cfg.ID, period)
	case MethodTrailingWindow:
		return a.trailingMean(cfg.ID, period, cfg.Method.Window)
	case MethodYearOverYear:
		return a.yearOverYear(cfg.ID, period)
	default:
		return 0, false
	}
}

// Point returns the median of the indicator's observations in period.
func (a *Aggregator) Point(indicator string, period time.Time) (float64, bool) {
	key := pointKey{indicator: indicator, month: monthIndex(MonthOf(period))}
	if cached, ok := a.points[key]; ok {
		return cached.value, cached.ok
	}

	observations := a.src.ObservationsFor(indicator, MonthOf(period))
	values := make([]float64, 0, len(observations))
	for _, o := range observations {
		values = append(values, o.Value)
	}

	v, ok := median(values)
	a.points[key] = pointValue{value: v, ok: ok}
	return v, ok
}

// trailingMean averages the monthly medians of the n months ending at period.
// Every month in the window must have data.
func (a *Aggregator) trailingMean(indicator string, period time.Time, n int) (float64, bool) {
	if n < 1 {
		return 0, false
	}
	var sum float64
	for k := 0; k < n; k++ {
		v, ok := a.Point(indicator, AddMonths(period, -k))
		if !ok {
			return 0, false
		}
		sum += v
	}
	return sum / float64(n), true
}

// yearOverYear is the percent change against the same month a year earlier.
func (a *Aggregator) yearOverYear(indicator string, period time.Time) (float64, bool) {
	current, ok := a.Point(indicator, period)
	if !ok {
		return 0, false
	}
	prior, ok := a.Point(indicator, AddMonths(period, -12))
	if !ok || prior == 0 {
		return 0, false
	}
	change := (current - prior) / prior * 100
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return 0, false
	}
	return change, true
}

func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
