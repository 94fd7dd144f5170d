package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobboard-ivr/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("jobs: not found")
	ErrInvalidArgument = errors.New("jobs: invalid argument")
)

// Store is the persistence boundary for postings.
type Store interface {
	// CreateJob persists a confirmed draft and assigns the next serial
	// number. Serials are strictly increasing and never skip or duplicate
	// under concurrent postings.
	CreateJob(ctx context.Context, d Draft) (id string, serial int64, err error)

	// IncrementStat bumps a posting counter. Best-effort at call sites: a
	// lost increment is acceptable, a crash is not.
	IncrementStat(ctx context.Context, id string, stat Stat) error

	// RecentPublished returns currently published postings, newest first,
	// capped at limit.
	RecentPublished(ctx context.Context, limit int) ([]JobRecord, error)
}

// SQLStore is the Postgres-backed Store.
//
// Assumed tables:
// - jobs
// - counters (name UNIQUE, value) for the serial sequence
type SQLStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

const serialCounter = "job_serial"

func (s *SQLStore) CreateJob(ctx context.Context, d Draft) (string, int64, error) {
	if d.Title == "" || d.ContactPhone == "" {
		return "", 0, ErrInvalidArgument
	}

	id := uuid.NewString()
	now := s.clock().UTC()
	var serial int64

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Single-statement upsert keeps the increment atomic per call; the
		// row lock serializes concurrent postings.
		const next = `
INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value
`
		if err := tx.QueryRowContext(ctx, next, serialCounter).Scan(&serial); err != nil {
			return fmt.Errorf("serial increment: %w", err)
		}

		const ins = `
INSERT INTO jobs (
  id, serial, title, area, city, difficulty,
  payment_kind, hourly_rate, global_payment,
  min_age, suitability, date_kind, date_value,
  contact_phone, poster_phone,
  is_posted, posted_at, views, contact_views, applications
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,TRUE,$16,0,0,0)
`
		_, err := tx.ExecContext(ctx, ins,
			id, serial, d.Title, d.Area, d.City, d.Difficulty,
			string(d.PaymentKind), d.HourlyRate, d.GlobalPayment,
			d.MinAge, string(d.Suitability), string(d.DateKind), d.DateValue,
			d.ContactPhone, d.PosterPhone, now)
		return err
	})
	if err != nil {
		return "", 0, err
	}
	return id, serial, nil
}

func (s *SQLStore) IncrementStat(ctx context.Context, id string, stat Stat) error {
	col, ok := statColumn(stat)
	if !ok {
		return ErrInvalidArgument
	}
	q := fmt.Sprintf(`UPDATE jobs SET %s = %s + 1 WHERE id = $1`, col, col)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// statColumn whitelists counter columns; stat names never reach SQL raw.
func statColumn(stat Stat) (string, bool) {
	switch stat {
	case StatView:
		return "views", true
	case StatContact:
		return "contact_views", true
	case StatApplication:
		return "applications", true
	default:
		return "", false
	}
}

func (s *SQLStore) RecentPublished(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT id, serial, title, area, city, difficulty,
       payment_kind, hourly_rate, global_payment,
       min_age, suitability, date_kind, date_value,
       contact_phone, poster_phone, is_posted, posted_at,
       views, contact_views, applications
FROM jobs
WHERE is_posted
ORDER BY posted_at DESC
LIMIT $1
`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var j JobRecord
		var kind, suit, dateKind string
		if err := rows.Scan(
			&j.ID, &j.Serial, &j.Title, &j.Area, &j.City, &j.Difficulty,
			&kind, &j.HourlyRate, &j.GlobalPayment,
			&j.MinAge, &suit, &dateKind, &j.DateValue,
			&j.ContactPhone, &j.PosterPhone, &j.IsPosted, &j.PostedAt,
			&j.Views, &j.ContactViews, &j.Applications,
		); err != nil {
			return nil, err
		}
		j.PaymentKind = PaymentKind(kind)
		j.Suitability = Suitability(suit)
		j.DateKind = DateKind(dateKind)
		out = append(out, j)
	}
	return out, rows.Err()
}
