package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/repository"
)

// SlotRepo implements SlotRepository on the session_slots table.
// Slots are scoped by namespace so several sessions can share a database.
type SlotRepo struct {
	db        *DB
	namespace string
}

// NewSlotRepo constructs a slot repository for one session namespace.
func NewSlotRepo(db *DB, namespace string) *SlotRepo {
	return &SlotRepo{db: db, namespace: namespace}
}

var _ repository.SlotRepository = (*SlotRepo)(nil)

// Get selects a slot value.
func (r *SlotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM session_slots WHERE namespace=$1 AND key=$2`
	var v []byte
	if err := r.db.Pool.QueryRow(ctx, q, r.namespace, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Put upserts a slot value in a single statement.
func (r *SlotRepo) Put(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO session_slots (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, r.namespace, key, value)
	return err
}

// Update locks the slot, applies fn and writes the result in one transaction.
// The advisory lock also covers a slot that has no row yet, which FOR UPDATE
// cannot lock.
func (r *SlotRepo) Update(ctx context.Context, key string, fn repository.UpdateFunc) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const lock = `SELECT pg_advisory_xact_lock(hashtext($1::text || '/' || $2::text))`
	const sel = `SELECT value FROM session_slots WHERE namespace=$1 AND key=$2 FOR UPDATE`
	const ups = `
INSERT INTO session_slots (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	const del = `DELETE FROM session_slots WHERE namespace=$1 AND key=$2`

	if _, err = tx.Exec(ctx, lock, r.namespace, key); err != nil {
		return err
	}

	var cur []byte
	found := true
	if scanErr := tx.QueryRow(ctx, sel, r.namespace, key).Scan(&cur); scanErr != nil {
		if !errors.Is(scanErr, pgx.ErrNoRows) {
			return scanErr
		}
		found = false
	}

	next, err := fn(cur, found)
	if err != nil {
		return err
	}
	if next == nil {
		if found {
			_, err = tx.Exec(ctx, del, r.namespace, key)
		}
		return err
	}
	_, err = tx.Exec(ctx, ups, r.namespace, key, next)
	return err
}

// Delete removes one slot.
func (r *SlotRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM session_slots WHERE namespace=$1 AND key=$2`
	_, err := r.db.Pool.Exec(ctx, q, r.namespace, key)
	return err
}

// Clear removes every slot of the namespace.
func (r *SlotRepo) Clear(ctx context.Context) error {
	const q = `DELETE FROM session_slots WHERE namespace=$1`
	_, err := r.db.Pool.Exec(ctx, q, r.namespace)
	return err
}
