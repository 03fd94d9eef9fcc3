package repository

import (
	"context"
	"errors"
	"time"

	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes that mean "another writer got there first".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// LockTimeout bounds how long a transaction waits for a wallet row lock.
const LockTimeout = "3s"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MapConflict turns lock and serialization failures into wallet.ErrConcurrencyConflict.
func MapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation:
			return errors.Join(wallet.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// Begin opens a transaction with the wallet lock timeout applied.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '`+LockTimeout+`'`); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// RunInTx begins a transaction, runs fn and commits. fn errors roll back.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return MapConflict(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return MapConflict(err)
	}
	return MapConflict(tx.Commit(ctx))
}

func (r *Repository) InTx(ctx context.Context, fn func(tx wallet.Tx) error) error {
	return r.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewTx(tx))
	})
}

func (r *Repository) GetWallet(ctx context.Context, accountID uuid.UUID) (wallet.Wallet, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE account_id = $1`, accountID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, err
}

func (r *Repository) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]wallet.Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_ledger WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, entry_type, bucket, delta, spendable_after, reference, created_at
		FROM credit_ledger
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]wallet.Entry, 0)
	for rows.Next() {
		var (
			e         wallet.Entry
			entryType string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &entryType, &e.Bucket, &e.Delta, &e.SpendableAfter, &e.Reference, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Type = wallet.EntryType(entryType)
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func (r *Repository) ListTrialsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT account_id FROM wallets
		WHERE status = 'trial' AND trial_expires_at <= $1
		ORDER BY trial_expires_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ wallet.Store = (*Repository)(nil)
