package jobs

import "time"

type PaymentKind string

const (
	PaymentHourly PaymentKind = "hourly"
	PaymentGlobal PaymentKind = "global"
	// PaymentAny is a filter value only; postings always carry a concrete kind.
	PaymentAny PaymentKind = "any"
)

type DateKind string

const (
	DateToday    DateKind = "today"
	DateSpecific DateKind = "specific"
	DateFlexible DateKind = "flexible"
	// DateWeek postings are valid while their reference date plus seven days
	// has not passed.
	DateWeek DateKind = "week"
)

type Suitability string

const (
	SuitMen     Suitability = "men"
	SuitWomen   Suitability = "women"
	SuitGeneral Suitability = "general"
)

// JobRecord is one published posting. Created by the composer, mutated only
// by counter increments, never deleted by this subsystem.
type JobRecord struct {
	ID     string
	Serial int64

	// Title is a recording reference or synthesized text.
	Title      string
	Area       string
	City       string
	Difficulty string

	PaymentKind PaymentKind
	// HourlyRate is set iff PaymentKind is hourly; GlobalPayment iff global.
	HourlyRate    *int
	GlobalPayment *int

	MinAge      int
	Suitability Suitability

	DateKind DateKind
	// DateValue is the reference date for today/specific/week postings.
	DateValue *time.Time

	ContactPhone string
	PosterPhone  string

	IsPosted bool
	PostedAt time.Time

	Views        int
	ContactViews int
	Applications int
}

// FilterCriteria narrows a search. All fields optional; zero means "no
// constraint".
type FilterCriteria struct {
	// Area matches case-insensitively as a substring of area or city.
	Area string

	PaymentKind PaymentKind
	// Salary bounds apply only when PaymentKind is hourly.
	MinSalary *int
	MaxSalary *int

	// Age bounds: a posting qualifies when its minimum age lies within the
	// caller's requested [MinAge, MaxAge] window.
	MinAge *int
	MaxAge *int
}

// Draft is the in-progress accumulation of composer steps. It exists only
// inside a call session and is discarded if the call ends before the save.
type Draft struct {
	Title         string
	Area          string
	City          string
	Difficulty    string
	PaymentKind   PaymentKind
	HourlyRate    *int
	GlobalPayment *int
	MinAge        int
	Suitability   Suitability
	DateKind      DateKind
	DateValue     *time.Time
	ContactPhone  string
	PosterPhone   string
}

// Stat names a best-effort counter on a posting.
type Stat string

const (
	StatView        Stat = "views"
	StatContact     Stat = "contact_views"
	StatApplication Stat = "applications"
)
