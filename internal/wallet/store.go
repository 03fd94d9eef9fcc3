package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tx is the set of wallet operations available inside one database transaction.
// Implementations must hold a row lock on every wallet returned by LockWallet
// until the transaction ends.
type Tx interface {
	LockWallet(ctx context.Context, accountID uuid.UUID) (Wallet, error)
	InsertWallet(ctx context.Context, w Wallet) error
	SaveWallet(ctx context.Context, w Wallet) error
	AppendEntry(ctx context.Context, e Entry) error
	HasReference(ctx context.Context, accountID uuid.UUID, reference string) (bool, error)
}

// Store persists wallets and their ledger.
type Store interface {
	// InTx runs fn in a transaction, committing when fn returns nil.
	// Serialization and lock failures surface as ErrConcurrencyConflict.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetWallet(ctx context.Context, accountID uuid.UUID) (Wallet, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, int, error)
	ListTrialsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
