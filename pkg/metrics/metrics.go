package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the IVR service.
// All business code takes *Metrics by injection; a nil receiver is a no-op
// so unit tests do not need a registry.
type Metrics struct {
	CallsStarted  prometheus.Counter
	CallsFinished *prometheus.CounterVec // label: reason (completed|timeout|hangup|error)
	Reads         prometheus.Counter
	ReadTimeouts  prometheus.Counter
	JobsPosted    prometheus.Counter
	JobSearches   prometheus.Counter
	Payments      *prometheus.CounterVec // label: outcome (allowed|charged|declined|failed)
	DirectoryErrs prometheus.Counter
	CallDuration  prometheus.Histogram
}

func New(namespace string) *Metrics {
	return &Metrics{
		CallsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_started_total",
			Help:      "Inbound call sessions created",
		}),
		CallsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_finished_total",
			Help:      "Call sessions torn down, by reason",
		}, []string{"reason"}),
		Reads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Prompt/read round-trips issued to the provider",
		}),
		ReadTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_timeouts_total",
			Help:      "Reads abandoned by the session inactivity timeout",
		}),
		JobsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_posted_total",
			Help:      "Job postings persisted after summary confirmation",
		}),
		JobSearches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_searches_total",
			Help:      "Job search/filter runs",
		}),
		Payments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_outcomes_total",
			Help:      "Payment gate outcomes",
		}, []string{"outcome"}),
		DirectoryErrs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_errors_total",
			Help:      "External directory lookups that failed and were swallowed",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time from session creation to teardown",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Metrics) IncCallsStarted() {
	if m != nil {
		m.CallsStarted.Inc()
	}
}

func (m *Metrics) IncCallsFinished(reason string) {
	if m != nil {
		m.CallsFinished.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncReads() {
	if m != nil {
		m.Reads.Inc()
	}
}

func (m *Metrics) IncReadTimeouts() {
	if m != nil {
		m.ReadTimeouts.Inc()
	}
}

func (m *Metrics) IncJobsPosted() {
	if m != nil {
		m.JobsPosted.Inc()
	}
}

func (m *Metrics) IncJobSearches() {
	if m != nil {
		m.JobSearches.Inc()
	}
}

func (m *Metrics) IncPayments(outcome string) {
	if m != nil {
		m.Payments.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncDirectoryErrs() {
	if m != nil {
		m.DirectoryErrs.Inc()
	}
}

func (m *Metrics) ObserveCallDuration(seconds float64) {
	if m != nil {
		m.CallDuration.Observe(seconds)
	}
}
