package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PGStore keeps budgets in the usage table.
type PGStore struct {
	DB       *sql.DB
	Defaults Defaults
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB, d Defaults) *PGStore {
	return &PGStore{DB: db, Defaults: d.normalize()}
}

func (s *PGStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) Consume(ctx context.Context, userID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}

	u.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE usage SET used = $1 WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) Reset(ctx context.Context, userID string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	u = s.Defaults.fresh(time.Now().UTC())
	if _, err = tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at`, userID, u.Plan, u.Limit, u.ResetsAt); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) ensure(ctx context.Context, userID string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// lockAndEnsure creates the owner's row when missing and then locks it. The
// insert tolerates a concurrent creator, so the select always finds the row.
func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	now := time.Now().UTC()
	fresh := s.Defaults.fresh(now)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO NOTHING`,
		userID, fresh.Plan, fresh.Limit, fresh.Used, fresh.ResetsAt); err != nil {
		return Usage{}, fmt.Errorf("insert usage row: %w", err)
	}

	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM usage WHERE user_id = $1 FOR UPDATE`, userID)
	if err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt); err != nil {
		return Usage{}, fmt.Errorf("lock usage row: %w", err)
	}

	if expired(u, now) {
		u.Used = 0
		u.ResetsAt = now.Add(s.Defaults.Period)
		if _, err := tx.ExecContext(ctx, `UPDATE usage SET used = $1, resets_at = $2 WHERE user_id = $3`, u.Used, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

var _ Store = (*PGStore)(nil)
