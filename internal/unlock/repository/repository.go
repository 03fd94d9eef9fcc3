package repository

import (
	"context"
	"encoding/json"
	"errors"

	"leadledger_backend/internal/unlock"
	walletrepo "leadledger_backend/internal/wallet/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool    *pgxpool.Pool
	wallets *walletrepo.Repository
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, wallets: walletrepo.New(pool)}
}

const grantColumns = `id, account_id, lead_id, credits_spent, unlocked_at, notes, snapshot`

func scanGrant(row pgx.Row) (unlock.Grant, error) {
	var (
		g        unlock.Grant
		snapshot []byte
	)
	if err := row.Scan(&g.ID, &g.AccountID, &g.LeadID, &g.CreditsSpent, &g.UnlockedAt, &g.Notes, &snapshot); err != nil {
		return unlock.Grant{}, err
	}
	if err := json.Unmarshal(snapshot, &g.Snapshot); err != nil {
		return unlock.Grant{}, err
	}
	return g, nil
}

// grantTx runs grant statements on the same pgx transaction as the wallet debit.
type grantTx struct {
	*walletrepo.Tx
}

func (t grantTx) GetGrant(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Grant, error) {
	row := t.Raw().QueryRow(ctx, `SELECT `+grantColumns+` FROM unlock_grants WHERE account_id = $1 AND lead_id = $2`, accountID, leadID)
	g, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return unlock.Grant{}, unlock.ErrGrantNotFound
	}
	return g, err
}

func (t grantTx) InsertGrant(ctx context.Context, g unlock.Grant) error {
	snapshot, err := json.Marshal(g.Snapshot)
	if err != nil {
		return err
	}
	_, err = t.Raw().Exec(ctx, `
		INSERT INTO unlock_grants (id, account_id, lead_id, credits_spent, unlocked_at, notes, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.AccountID, g.LeadID, g.CreditsSpent, g.UnlockedAt, g.Notes, snapshot)
	return err
}

func (r *Repository) InTx(ctx context.Context, fn func(tx unlock.Tx) error) error {
	return r.wallets.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(grantTx{Tx: walletrepo.NewTx(tx)})
	})
}

func (r *Repository) GetGrant(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Grant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM unlock_grants WHERE account_id = $1 AND lead_id = $2`, accountID, leadID)
	g, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return unlock.Grant{}, unlock.ErrGrantNotFound
	}
	return g, err
}

func (r *Repository) ListGrants(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]unlock.Grant, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unlock_grants WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+grantColumns+` FROM unlock_grants
		WHERE account_id = $1
		ORDER BY unlocked_at DESC, id ASC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]unlock.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func (r *Repository) UpdateNotes(ctx context.Context, accountID, leadID uuid.UUID, notes *string) (unlock.Grant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE unlock_grants SET notes = $3
		WHERE account_id = $1 AND lead_id = $2
		RETURNING `+grantColumns, accountID, leadID, notes)
	g, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return unlock.Grant{}, unlock.ErrGrantNotFound
	}
	return g, err
}

func (r *Repository) UnlockedLeadIDs(ctx context.Context, accountID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id FROM unlock_grants WHERE account_id = $1 AND lead_id = ANY($2)`, accountID, leadIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

var (
	_ unlock.Store = (*Repository)(nil)
	_ unlock.Tx    = grantTx{}
)
