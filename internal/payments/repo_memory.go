package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and early
// development.
type MemoryStore struct {
	mu sync.Mutex

	Settings     *Settings
	unlocks      map[string]map[string]bool // phone -> job ids
	subs         map[string]time.Time
	Transactions []Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		unlocks: make(map[string]map[string]bool),
		subs:    make(map[string]time.Time),
	}
}

func (m *MemoryStore) GetSettings(ctx context.Context) (Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Settings == nil {
		return Settings{}, false, nil
	}
	return *m.Settings, true, nil
}

func (m *MemoryStore) UpdateSettings(ctx context.Context, in Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settings = &in
	return nil
}

func (m *MemoryStore) HasUnlock(ctx context.Context, phone, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocks[phone][jobID], nil
}

func (m *MemoryStore) SubscriptionUntil(ctx context.Context, phone string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.subs[phone]; ok {
		u := until
		return &u, nil
	}
	return nil, nil
}

func (m *MemoryStore) GrantUnlock(ctx context.Context, phone, jobID string, txn Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unlocks[phone] == nil {
		m.unlocks[phone] = make(map[string]bool)
	}
	m.unlocks[phone][jobID] = true
	m.Transactions = append(m.Transactions, txn)
	return nil
}

func (m *MemoryStore) GrantSubscription(ctx context.Context, phone string, until time.Time, txn Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[phone] = until
	m.Transactions = append(m.Transactions, txn)
	return nil
}
