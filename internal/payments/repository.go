package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobboard-ivr/pkg/utils"
)

// Store is the persistence boundary for gating state.
//
// Invariants:
// - Transactions are append-only (immutable).
// - An entitlement write and its transaction record commit atomically.
type Store interface {
	GetSettings(ctx context.Context) (Settings, bool, error)
	HasUnlock(ctx context.Context, phone, jobID string) (bool, error)
	// SubscriptionUntil returns the caller's entitlement window end, or nil.
	SubscriptionUntil(ctx context.Context, phone string) (*time.Time, error)
	GrantUnlock(ctx context.Context, phone, jobID string, txn Transaction) error
	GrantSubscription(ctx context.Context, phone string, until time.Time, txn Transaction) error
}

// SQLStore is the Postgres-backed Store.
//
// Assumed tables:
// - payment_settings (single row)
// - job_unlocks (phone, job_id) UNIQUE
// - payment_subscriptions (phone UNIQUE, until)
// - payment_transactions (append-only; UNIQUE attempt_key)
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) GetSettings(ctx context.Context) (Settings, bool, error) {
	const q = `
SELECT enabled, poster_enabled, viewer_enabled, poster_price, viewer_price, subscription_price
FROM payment_settings
LIMIT 1
`
	var out Settings
	err := s.db.QueryRowContext(ctx, q).Scan(
		&out.Enabled,
		&out.PosterEnabled,
		&out.ViewerEnabled,
		&out.PosterPrice,
		&out.ViewerPrice,
		&out.SubscriptionPrice,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	return out, true, nil
}

// UpdateSettings upserts the single settings row. Used by the ops surface.
func (s *SQLStore) UpdateSettings(ctx context.Context, in Settings) error {
	const q = `
INSERT INTO payment_settings (id, enabled, poster_enabled, viewer_enabled, poster_price, viewer_price, subscription_price)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  enabled = EXCLUDED.enabled,
  poster_enabled = EXCLUDED.poster_enabled,
  viewer_enabled = EXCLUDED.viewer_enabled,
  poster_price = EXCLUDED.poster_price,
  viewer_price = EXCLUDED.viewer_price,
  subscription_price = EXCLUDED.subscription_price
`
	_, err := s.db.ExecContext(ctx, q,
		in.Enabled, in.PosterEnabled, in.ViewerEnabled,
		in.PosterPrice, in.ViewerPrice, in.SubscriptionPrice)
	return err
}

func (s *SQLStore) HasUnlock(ctx context.Context, phone, jobID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM job_unlocks WHERE phone = $1 AND job_id = $2)`
	var ok bool
	if err := s.db.QueryRowContext(ctx, q, phone, jobID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *SQLStore) SubscriptionUntil(ctx context.Context, phone string) (*time.Time, error) {
	const q = `SELECT until FROM payment_subscriptions WHERE phone = $1`
	var until time.Time
	err := s.db.QueryRowContext(ctx, q, phone).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &until, nil
}

func (s *SQLStore) GrantUnlock(ctx context.Context, phone, jobID string, txn Transaction) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO job_unlocks (phone, job_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (phone, job_id) DO NOTHING
`
		if _, err := tx.ExecContext(ctx, ins, phone, jobID, txn.CreatedAt); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, txn)
	})
}

func (s *SQLStore) GrantSubscription(ctx context.Context, phone string, until time.Time, txn Transaction) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO payment_subscriptions (phone, until, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (phone) DO UPDATE SET until = EXCLUDED.until
`
		if _, err := tx.ExecContext(ctx, ins, phone, until, txn.CreatedAt); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, txn)
	})
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txn Transaction) error {
	const q = `
INSERT INTO payment_transactions (id, phone, job_id, role, amount, attempt_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.ExecContext(ctx, q,
		txn.ID, txn.Phone, txn.JobID, string(txn.Role), txn.Amount, txn.AttemptKey, txn.CreatedAt)
	return err
}
