package jobs

import (
	"context"
	"strings"
	"time"

	"jobboard-ivr/pkg/metrics"
)

// Fetch and presentation windows. The fetch cap bounds store load; the
// presentation cap bounds how many postings one call walks through.
const (
	FetchWindow   = 20
	PresentWindow = 10
)

// QueryEngine fetches published postings and applies filter predicates in a
// fixed order: area, payment kind (+ salary range for hourly), minimum age,
// date validity.
type QueryEngine struct {
	store Store
	clock func() time.Time
	m     *metrics.Metrics
}

func NewQueryEngine(store Store, m *metrics.Metrics) *QueryEngine {
	return &QueryEngine{store: store, clock: time.Now, m: m}
}

// SetClock injects a deterministic clock for tests.
func (e *QueryEngine) SetClock(clock func() time.Time) { e.clock = clock }

func (e *QueryEngine) Search(ctx context.Context, c FilterCriteria) ([]JobRecord, error) {
	e.m.IncJobSearches()

	candidates, err := e.store.RecentPublished(ctx, FetchWindow)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	out := make([]JobRecord, 0, len(candidates))
	for _, j := range candidates {
		if !matchArea(j, c) {
			continue
		}
		if !matchPayment(j, c) {
			continue
		}
		if !matchAge(j, c) {
			continue
		}
		if !matchDate(j, now) {
			continue
		}
		out = append(out, j)
		if len(out) == PresentWindow {
			break
		}
	}
	return out, nil
}

func matchArea(j JobRecord, c FilterCriteria) bool {
	if c.Area == "" {
		return true
	}
	want := strings.ToLower(c.Area)
	return strings.Contains(strings.ToLower(j.Area), want) ||
		strings.Contains(strings.ToLower(j.City), want)
}

func matchPayment(j JobRecord, c FilterCriteria) bool {
	if c.PaymentKind == "" || c.PaymentKind == PaymentAny {
		return true
	}
	if j.PaymentKind != c.PaymentKind {
		return false
	}
	// Salary bounds are meaningful only for hourly postings.
	if c.PaymentKind != PaymentHourly {
		return true
	}
	if j.HourlyRate == nil {
		return c.MinSalary == nil && c.MaxSalary == nil
	}
	if c.MinSalary != nil && *j.HourlyRate < *c.MinSalary {
		return false
	}
	if c.MaxSalary != nil && *j.HourlyRate > *c.MaxSalary {
		return false
	}
	return true
}

// matchAge requires the posting's minimum age to lie within the caller's
// requested window, both bounds inclusive.
func matchAge(j JobRecord, c FilterCriteria) bool {
	if c.MinAge != nil && j.MinAge < *c.MinAge {
		return false
	}
	if c.MaxAge != nil && j.MinAge > *c.MaxAge {
		return false
	}
	return true
}

func matchDate(j JobRecord, now time.Time) bool {
	switch j.DateKind {
	case DateFlexible:
		return true
	case DateToday, DateSpecific:
		if j.DateValue == nil {
			return false
		}
		return !j.DateValue.Before(startOfDay(now))
	case DateWeek:
		if j.DateValue == nil {
			return false
		}
		return !j.DateValue.AddDate(0, 0, 7).Before(startOfDay(now))
	default:
		return false
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
