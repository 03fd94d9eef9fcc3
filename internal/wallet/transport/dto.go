package transport

import (
	"time"

	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
)

type WalletResponse struct {
	AccountID      uuid.UUID     `json:"accountId"`
	PlanSlug       *string       `json:"planSlug,omitempty"`
	Status         wallet.Status `json:"status"`
	Spendable      int           `json:"spendable"`
	Trial          int           `json:"trial"`
	TrialExpiresAt *time.Time    `json:"trialExpiresAt,omitempty"`
	Frozen         int           `json:"frozen"`
	FrozenAt       *time.Time    `json:"frozenAt,omitempty"`
	TotalSpent     int64         `json:"totalSpent"`
	BonusSeats     int           `json:"bonusSeats"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type LedgerQuery struct {
	Offset int `form:"offset" validate:"min=0"`
	Limit  int `form:"limit" validate:"min=0,max=200"`
}

type LedgerResponse struct {
	Items  []wallet.Entry `json:"items"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// Admin requests. Reference, when set, makes the call idempotent per account.

type DepositRequest struct {
	Amount    int    `json:"amount" validate:"required,min=1"`
	Bucket    string `json:"bucket" validate:"omitempty,oneof=spendable frozen"`
	Reference string `json:"reference" validate:"max=200"`
}

type RenewRequest struct {
	PlanSlug  string `json:"planSlug" validate:"required,max=64"`
	Allotment *int   `json:"allotment,omitempty" validate:"omitempty,min=0"`
	Reference string `json:"reference" validate:"max=200"`
}

type StartTrialRequest struct {
	Credits   *int       `json:"credits,omitempty" validate:"omitempty,min=1"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	PlanSlug  string     `json:"planSlug" validate:"max=64"`
	Reference string     `json:"reference" validate:"max=200"`
}

type AdjustRequest struct {
	Delta     int    `json:"delta" validate:"required,ne=0"`
	Reference string `json:"reference" validate:"required,max=200"`
}

type ReleaseFrozenRequest struct {
	Reference string `json:"reference" validate:"max=200"`
}

type OpenWalletRequest struct {
	PlanSlug *string `json:"planSlug,omitempty" validate:"omitempty,max=64"`
}

func ToWalletResponse(w wallet.Wallet) WalletResponse {
	return WalletResponse{
		AccountID:      w.AccountID,
		PlanSlug:       w.PlanSlug,
		Status:         w.Status,
		Spendable:      w.Spendable,
		Trial:          w.Trial,
		TrialExpiresAt: w.TrialExpiresAt,
		Frozen:         w.Frozen,
		FrozenAt:       w.FrozenAt,
		TotalSpent:     w.TotalSpent,
		BonusSeats:     w.BonusSeats,
		UpdatedAt:      w.UpdatedAt,
	}
}
