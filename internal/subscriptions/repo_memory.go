package subscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and early
// development.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), clock: time.Now}
}

// SetClock injects a deterministic clock for tests.
func (m *MemoryStore) SetClock(clock func() time.Time) { m.clock = clock }

func (m *MemoryStore) Create(ctx context.Context, r Record) (string, error) {
	if r.Phone == "" {
		return "", ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = uuid.NewString()
	r.Active = true
	r.PauseUntil = nil
	r.CancelReason = ""
	now := m.clock().UTC()
	r.CreatedAt = now
	r.ConsentAt = now
	m.records[r.ID] = &r
	return r.ID, nil
}

func (m *MemoryStore) FindActive(ctx context.Context, phone string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*Record
	for _, r := range m.records {
		if r.Phone == phone && r.Active {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, k int) bool {
		return matches[i].CreatedAt.After(matches[k].CreatedAt)
	})
	out := *matches[0]
	return &out, nil
}

func (m *MemoryStore) Cancel(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Active = false
	r.CancelReason = reason
	r.PauseUntil = nil
	return nil
}

func (m *MemoryStore) Pause(ctx context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || !r.Active {
		return ErrNotFound
	}
	u := until.UTC()
	r.PauseUntil = &u
	return nil
}

func (m *MemoryStore) ClearExpiredPauses(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.PauseUntil != nil && !r.PauseUntil.After(now) {
			r.PauseUntil = nil
			n++
		}
	}
	return n, nil
}

// Get returns a copy of a stored record; test helper.
func (m *MemoryStore) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// All returns copies of every stored record; test helper.
func (m *MemoryStore) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}
