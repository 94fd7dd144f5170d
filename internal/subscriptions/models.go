package subscriptions

import (
	"time"

	"jobboard-ivr/internal/jobs"
)

// Record is one caller's alert subscription.
//
// Invariant: a record is never simultaneously cancelled (Active=false) and
// paused (PauseUntil set). Cancellation is terminal and clears any pause.
type Record struct {
	ID    string
	Phone string

	Active bool
	// PauseUntil suspends delivery until the given time without touching the
	// active flag.
	PauseUntil *time.Time
	// CancelReason is set only by cancellation.
	CancelReason string

	// Filters constrain which future broadcasts are considered a match; they
	// do not by themselves deliver anything.
	Filters    jobs.FilterCriteria
	HasFilters bool

	// NightMode permits delivery outside daytime hours.
	NightMode bool

	CreatedAt time.Time
	ConsentAt time.Time
}

// Paused reports whether the record is pause-suspended at the given time.
func (r *Record) Paused(now time.Time) bool {
	return r.PauseUntil != nil && r.PauseUntil.After(now)
}

// Pause window choices offered by the unsubscribe flow.
const (
	PauseLong  = 30 * 24 * time.Hour
	PauseShort = 7 * 24 * time.Hour
)
