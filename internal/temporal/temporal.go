// Package temporal provides weekly aggregation and calendar feature
// extraction for observation time series.
package temporal

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Range is an inclusive date interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses a pair of YYYY-MM-DD dates into a Range.
func ParseRange(start, end string) (Range, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return Range{}, eris.Wrapf(err, "temporal: parse start date %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return Range{}, eris.Wrapf(err, "temporal: parse end date %q", end)
	}
	if e.Before(s) {
		return Range{}, eris.Errorf("temporal: end date %s before start date %s", end, start)
	}
	return Range{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the range (inclusive).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Sample is a single timestamped observation.
type Sample struct {
	Time  time.Time
	Value float64
}

// Reducer names a weekly aggregation function.
type Reducer string

const (
	Mean   Reducer = "mean"
	Max    Reducer = "max"
	Min    Reducer = "min"
	Sum    Reducer = "sum"
	Median Reducer = "median"
)

// WeekValue is one aggregated value for an ISO calendar week.
type WeekValue struct {
	Year  int       // ISO year
	Week  int       // ISO week number, 1..53
	Start time.Time // Monday of the week, UTC
	Value float64
	Count int // observations aggregated into this week
}

// AggregateWeekly groups samples by ISO calendar week and reduces each group
// with the given reducer. Partial weeks at either end of the series are kept
// as long as they contain at least one observation. The result is sorted by
// week start.
func AggregateWeekly(samples []Sample, reducer Reducer) ([]WeekValue, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	type key struct{ year, week int }
	groups := make(map[key][]float64)
	starts := make(map[key]time.Time)

	for _, s := range samples {
		y, w := s.Time.ISOWeek()
		k := key{y, w}
		groups[k] = append(groups[k], s.Value)
		if _, ok := starts[k]; !ok {
			starts[k] = WeekStart(s.Time)
		}
	}

	out := make([]WeekValue, 0, len(groups))
	for k, values := range groups {
		v, err := Reduce(values, reducer)
		if err != nil {
			return nil, err
		}
		out = append(out, WeekValue{
			Year:  k.year,
			Week:  k.week,
			Start: starts[k],
			Value: v,
			Count: len(values),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Reduce collapses a group of values with the named reducer. Callers that
// group observations themselves (per-cell raster aggregation) use this
// directly; AggregateWeekly uses it per ISO week.
func Reduce(values []float64, reducer Reducer) (float64, error) {
	switch reducer {
	case Mean:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	case Sum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case Max:
		best := values[0]
		for _, v := range values[1:] {
			if v > best {
				best = v
			}
		}
		return best, nil
	case Min:
		best := values[0]
		for _, v := range values[1:] {
			if v < best {
				best = v
			}
		}
		return best, nil
	case Median:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2], nil
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2, nil
	default:
		return 0, eris.Errorf("temporal: unknown reducer %q", reducer)
	}
}

// WeekStart returns the Monday (UTC, midnight) of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// WeeklyDates returns the Mondays covering the range, starting with the
// Monday of the week containing r.Start.
func WeeklyDates(r Range) []time.Time {
	var dates []time.Time
	for d := WeekStart(r.Start); !d.After(r.End); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}
