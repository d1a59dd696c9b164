package macro

import "time"

// PeriodLabelLayout renders a period the way the dashboard labels its rows.
const PeriodLabelLayout = "Jan 2006"

// PeriodKeyLayout is the compact YYYY-MM form used in queries and storage.
const PeriodKeyLayout = "2006-01"

// MonthOf truncates t to the first day of its calendar month, in UTC.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a period by n calendar months (n may be negative).
func AddMonths(period time.Time, n int) time.Time {
	period = MonthOf(period)
	return time.Date(period.Year(), period.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// BuildPeriods returns every month from start to end inclusive, ascending.
// A start after end yields an empty slice.
func BuildPeriods(start, end time.Time) []time.Time {
	start, end = MonthOf(start), MonthOf(end)
	periods := make([]time.Time, 0)
	for p := start; !p.After(end); p = AddMonths(p, 1) {
		periods = append(periods, p)
	}
	return periods
}

// LatestPeriods returns the n months ending at end, ascending.
func LatestPeriods(end time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	return BuildPeriods(AddMonths(end, -(n - 1)), end)
}

// ParsePeriod parses a YYYY-MM string into a period.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse(PeriodKeyLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return MonthOf(t), nil
}

// monthIndex maps a period to a dense integer, handy as a map key.
func monthIndex(period time.Time) int {
	period = period.UTC()
	return period.Year()*12 + int(period.Month()) - 1
}
