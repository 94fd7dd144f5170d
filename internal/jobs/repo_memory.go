package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and early
// development. Serial assignment matches the SQL behavior: strictly
// increasing, no gaps, no duplicates under concurrency.
type MemoryStore struct {
	mu     sync.Mutex
	serial int64
	jobs   map[string]*JobRecord

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*JobRecord), clock: time.Now}
}

// SetClock injects a deterministic clock for tests.
func (m *MemoryStore) SetClock(clock func() time.Time) { m.clock = clock }

func (m *MemoryStore) CreateJob(ctx context.Context, d Draft) (string, int64, error) {
	if d.Title == "" || d.ContactPhone == "" {
		return "", 0, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.serial++
	id := uuid.NewString()
	m.jobs[id] = &JobRecord{
		ID:            id,
		Serial:        m.serial,
		Title:         d.Title,
		Area:          d.Area,
		City:          d.City,
		Difficulty:    d.Difficulty,
		PaymentKind:   d.PaymentKind,
		HourlyRate:    d.HourlyRate,
		GlobalPayment: d.GlobalPayment,
		MinAge:        d.MinAge,
		Suitability:   d.Suitability,
		DateKind:      d.DateKind,
		DateValue:     d.DateValue,
		ContactPhone:  d.ContactPhone,
		PosterPhone:   d.PosterPhone,
		IsPosted:      true,
		PostedAt:      m.clock().UTC(),
	}
	return id, m.serial, nil
}

func (m *MemoryStore) IncrementStat(ctx context.Context, id string, stat Stat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	switch stat {
	case StatView:
		j.Views++
	case StatContact:
		j.ContactViews++
	case StatApplication:
		j.Applications++
	default:
		return ErrInvalidArgument
	}
	return nil
}

func (m *MemoryStore) RecentPublished(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]JobRecord, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.IsPosted {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].PostedAt.Equal(out[k].PostedAt) {
			return out[i].Serial > out[k].Serial
		}
		return out[i].PostedAt.After(out[k].PostedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Job returns a copy of a stored posting; test helper.
func (m *MemoryStore) Job(id string) (JobRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return JobRecord{}, false
	}
	return *j, true
}
