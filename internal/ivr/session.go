package ivr

import (
	"context"
	"log/slog"
	"time"
)

// Session is the per-call mutable dialog state: identity, the bag of fields
// collected so far, and per-field attempt counters.
//
// Ownership invariant: a session is mutated only by the single handler
// goroutine currently running for its call. It is never shared across calls
// and never persisted; it dies with the call.
type Session struct {
	ID        string
	Caller    string
	Extension string
	StartedAt time.Time

	fields   map[string]string
	attempts map[string]int
}

func NewSession(id, caller, extension string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Caller:    caller,
		Extension: extension,
		StartedAt: now,
		fields:    make(map[string]string),
		attempts:  make(map[string]int),
	}
}

// Set stores a collected field value.
func (s *Session) Set(key, value string) { s.fields[key] = value }

// Get returns a collected field value.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Value returns a collected field value or "".
func (s *Session) Value(key string) string { return s.fields[key] }

// Delete drops a collected field.
func (s *Session) Delete(key string) { delete(s.fields, key) }

// ClearFields discards every collected field and attempt counter.
// Used when a draft is abandoned and the dialog restarts a wizard.
func (s *Session) ClearFields() {
	s.fields = make(map[string]string)
	s.attempts = make(map[string]int)
}

// Attempts returns the retry count recorded for a slot.
func (s *Session) Attempts(slot string) int { return s.attempts[slot] }

// IncAttempts bumps and returns the retry count for a slot.
func (s *Session) IncAttempts(slot string) int {
	s.attempts[slot]++
	return s.attempts[slot]
}

// ResetAttempts zeroes the retry count for a slot.
func (s *Session) ResetAttempts(slot string) { delete(s.attempts, slot) }

// Call bundles everything a dialog flow needs: the session it owns, the
// transport it speaks through, and a call-scoped logger.
type Call struct {
	Session   *Session
	Transport Transport
	Log       *slog.Logger
}

// Handler is one dialog subflow. A nil return means "done, back to the main
// menu"; ErrCallEnded means the call is gone; any other error is treated as
// an unexpected failure and handled at the router boundary.
type Handler func(ctx context.Context, call *Call) error
