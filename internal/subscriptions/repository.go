package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobboard-ivr/internal/jobs"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("subscriptions: not found")
	ErrInvalidArgument = errors.New("subscriptions: invalid argument")
)

// Store is the persistence boundary for subscription records.
type Store interface {
	Create(ctx context.Context, r Record) (id string, err error)

	// FindActive returns the caller's active record, nil when absent.
	// Paused records are still active.
	FindActive(ctx context.Context, phone string) (*Record, error)

	// Cancel is terminal: clears Active, records the reason, and removes any
	// pause so the record never carries both states.
	Cancel(ctx context.Context, id, reason string) error

	// Pause suspends delivery until the given time. Active stays untouched.
	Pause(ctx context.Context, id string, until time.Time) error

	// ClearExpiredPauses removes pause marks that have lapsed. Run
	// periodically; returns the number of records touched.
	ClearExpiredPauses(ctx context.Context, now time.Time) (int64, error)
}

// SQLStore is the Postgres-backed Store. Assumed table: subscriptions.
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

func (s *SQLStore) Create(ctx context.Context, r Record) (string, error) {
	if r.Phone == "" {
		return "", ErrInvalidArgument
	}
	id := uuid.NewString()
	now := s.clock().UTC()
	const q = `
INSERT INTO subscriptions (
  id, phone, active, pause_until, cancel_reason,
  filter_area, filter_payment_kind, filter_min_salary, filter_max_salary,
  filter_min_age, filter_max_age,
  has_filters, night_mode, created_at, consent_at
) VALUES ($1,$2,TRUE,NULL,'',$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
`
	_, err := s.db.ExecContext(ctx, q,
		id, r.Phone,
		r.Filters.Area, string(r.Filters.PaymentKind),
		r.Filters.MinSalary, r.Filters.MaxSalary,
		r.Filters.MinAge, r.Filters.MaxAge,
		r.HasFilters, r.NightMode, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) FindActive(ctx context.Context, phone string) (*Record, error) {
	const q = `
SELECT id, phone, active, pause_until, cancel_reason,
       filter_area, filter_payment_kind, filter_min_salary, filter_max_salary,
       filter_min_age, filter_max_age,
       has_filters, night_mode, created_at, consent_at
FROM subscriptions
WHERE phone = $1 AND active
ORDER BY created_at DESC
LIMIT 1
`
	var r Record
	var kind string
	err := s.db.QueryRowContext(ctx, q, phone).Scan(
		&r.ID, &r.Phone, &r.Active, &r.PauseUntil, &r.CancelReason,
		&r.Filters.Area, &kind, &r.Filters.MinSalary, &r.Filters.MaxSalary,
		&r.Filters.MinAge, &r.Filters.MaxAge,
		&r.HasFilters, &r.NightMode, &r.CreatedAt, &r.ConsentAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Filters.PaymentKind = jobs.PaymentKind(kind)
	return &r, nil
}

func (s *SQLStore) Cancel(ctx context.Context, id, reason string) error {
	const q = `
UPDATE subscriptions
SET active = FALSE, cancel_reason = $2, pause_until = NULL
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, id, reason)
	if err != nil {
		return err
	}
	return checkFound(res)
}

func (s *SQLStore) Pause(ctx context.Context, id string, until time.Time) error {
	const q = `UPDATE subscriptions SET pause_until = $2 WHERE id = $1 AND active`
	res, err := s.db.ExecContext(ctx, q, id, until.UTC())
	if err != nil {
		return err
	}
	return checkFound(res)
}

func (s *SQLStore) ClearExpiredPauses(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE subscriptions SET pause_until = NULL WHERE pause_until IS NOT NULL AND pause_until <= $1`
	res, err := s.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func checkFound(res sql.Result) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
