package repository

import (
	"errors"
	"fmt"
	"testing"

	"leadledger_backend/internal/wallet"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapConflict(t *testing.T) {
	for _, code := range []string{pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation} {
		err := MapConflict(fmt.Errorf("exec: %w", &pgconn.PgError{Code: code}))
		if !errors.Is(err, wallet.ErrConcurrencyConflict) {
			t.Fatalf("code %s: expected ErrConcurrencyConflict, got %v", code, err)
		}
	}

	other := &pgconn.PgError{Code: "23514"}
	if err := MapConflict(other); errors.Is(err, wallet.ErrConcurrencyConflict) {
		t.Fatalf("check violation must not be reported as a conflict")
	}
	if MapConflict(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
