package repository

import (
	"context"
	"errors"

	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `
	account_id, plan_slug, status, spendable, trial, trial_expires_at, frozen, frozen_at, total_spent,
	stay_active_earned, bonus_earned, boost_pack_earned, boost_pack_seats_earned, bonus_seats,
	last_stay_active_redeemed_at, last_bonus_redeemed_at, last_boost_pack_redeemed_at,
	created_at, updated_at`

func scanWallet(row pgx.Row) (wallet.Wallet, error) {
	var (
		w      wallet.Wallet
		status string
	)
	err := row.Scan(
		&w.AccountID, &w.PlanSlug, &status, &w.Spendable, &w.Trial, &w.TrialExpiresAt, &w.Frozen, &w.FrozenAt, &w.TotalSpent,
		&w.StayActiveEarned, &w.BonusEarned, &w.BoostPackEarned, &w.BoostPackSeatsEarned, &w.BonusSeats,
		&w.LastStayActiveRedeemedAt, &w.LastBonusRedeemedAt, &w.LastBoostPackRedeemedAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w.Status = wallet.Status(status)
	return w, nil
}

// Tx implements wallet.Tx over an open pgx transaction. Other modules embed it
// to run their own statements in the same transaction as a debit.
type Tx struct {
	tx pgx.Tx
}

func NewTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

// Raw exposes the underlying transaction.
func (t *Tx) Raw() pgx.Tx {
	return t.tx
}

func (t *Tx) LockWallet(ctx context.Context, accountID uuid.UUID) (wallet.Wallet, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, err
}

func (t *Tx) InsertWallet(ctx context.Context, w wallet.Wallet) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO wallets (account_id, plan_slug, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO NOTHING`,
		w.AccountID, w.PlanSlug, string(w.Status), w.CreatedAt, w.UpdatedAt)
	return err
}

func (t *Tx) SaveWallet(ctx context.Context, w wallet.Wallet) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE wallets SET
			plan_slug = $2, status = $3, spendable = $4, trial = $5, trial_expires_at = $6,
			frozen = $7, frozen_at = $8, total_spent = $9,
			stay_active_earned = $10, bonus_earned = $11, boost_pack_earned = $12,
			boost_pack_seats_earned = $13, bonus_seats = $14,
			last_stay_active_redeemed_at = $15, last_bonus_redeemed_at = $16, last_boost_pack_redeemed_at = $17,
			updated_at = $18
		WHERE account_id = $1`,
		w.AccountID, w.PlanSlug, string(w.Status), w.Spendable, w.Trial, w.TrialExpiresAt,
		w.Frozen, w.FrozenAt, w.TotalSpent,
		w.StayActiveEarned, w.BonusEarned, w.BoostPackEarned,
		w.BoostPackSeatsEarned, w.BonusSeats,
		w.LastStayActiveRedeemedAt, w.LastBonusRedeemedAt, w.LastBoostPackRedeemedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound
	}
	return nil
}

func (t *Tx) AppendEntry(ctx context.Context, e wallet.Entry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO credit_ledger (account_id, entry_type, bucket, delta, spendable_after, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.AccountID, string(e.Type), e.Bucket, e.Delta, e.SpendableAfter, e.Reference, e.CreatedAt)
	return err
}

func (t *Tx) HasReference(ctx context.Context, accountID uuid.UUID, reference string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM credit_ledger WHERE account_id = $1 AND reference = $2)`,
		accountID, reference).Scan(&exists)
	return exists, err
}

var _ wallet.Tx = (*Tx)(nil)
