// Package messages persists caller-recorded message-box entries for later
// operator review.
package messages

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SQLStore writes message-box entries to Postgres. Assumed table: messages.
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

func (s *SQLStore) SaveMessage(ctx context.Context, caller, recordingRef string) error {
	const q = `INSERT INTO messages (id, caller, recording_ref, created_at) VALUES ($1,$2,$3,$4)`
	_, err := s.db.ExecContext(ctx, q, uuid.NewString(), caller, recordingRef, s.clock().UTC())
	return err
}

// Message is one stored entry.
type Message struct {
	ID           string
	Caller       string
	RecordingRef string
	CreatedAt    time.Time
}

// Recent lists the newest entries for the ops surface.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Message, error) {
	const q = `SELECT id, caller, recording_ref, created_at FROM messages ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Caller, &m.RecordingRef, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemoryStore is an in-memory sink for tests and early development.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Message
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) SaveMessage(ctx context.Context, caller, recordingRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Message{
		ID:           uuid.NewString(),
		Caller:       caller,
		RecordingRef: recordingRef,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
