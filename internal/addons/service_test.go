package addons

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/testutil/memstore"
	"leadledger_backend/internal/wallet"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	wallets := walletsvc.New(store.Wallets(), nil, logger.New("test")).WithClock(func() time.Time { return fixedNow })
	return New(wallets, plans.Default()), store
}

func seed(store *memstore.Store, plan string, spendable int) uuid.UUID {
	var slug *string
	if plan != "" {
		slug = &plan
	}
	w := wallet.NewWallet(uuid.New(), slug, fixedNow)
	w.Spendable = spendable
	store.PutWallet(w)
	return w.AccountID
}

func TestEarnUsesCatalogDefaults(t *testing.T) {
	svc, store := newTestService(t)
	acct := seed(store, "professional", 0)

	w, err := svc.Earn(context.Background(), acct, wallet.AddOnBoostPack, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 100, w.BoostPackEarned)
	assert.Equal(t, 1, w.BoostPackSeatsEarned)

	override := 7
	w, err = svc.Earn(context.Background(), acct, wallet.AddOnBonus, &override, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 7, w.BonusEarned)
}

func TestRedeemHappyPathAndSecondRedeem(t *testing.T) {
	svc, store := newTestService(t)
	acct := seed(store, "professional", 10)
	ctx := context.Background()

	_, err := svc.Earn(ctx, acct, wallet.AddOnBoostPack, nil, nil, "")
	require.NoError(t, err)

	r, w, err := svc.Redeem(ctx, acct, wallet.AddOnBoostPack)
	require.NoError(t, err)
	assert.Equal(t, 100, r.CreditsAdded)
	assert.Equal(t, 1, r.SeatsAdded)
	assert.Equal(t, 110, w.Spendable)
	assert.Equal(t, 1, w.BonusSeats)
	assert.Zero(t, w.BoostPackEarned)
	require.NotNil(t, w.LastBoostPackRedeemedAt)

	_, _, err = svc.Redeem(ctx, acct, wallet.AddOnBoostPack)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.True(t, errors.Is(err, wallet.ErrNothingToRedeem))
}

func TestRedeemTierGate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	starter := seed(store, "starter", 0)
	_, err := svc.Earn(ctx, starter, wallet.AddOnBoostPack, nil, nil, "")
	require.NoError(t, err)

	_, _, err = svc.Redeem(ctx, starter, wallet.AddOnBoostPack)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.True(t, IsTierIneligible(err))

	w, _ := store.GetWallet(ctx, starter)
	assert.Equal(t, 100, w.BoostPackEarned, "ineligible redemption must leave the bucket")

	planless := seed(store, "", 0)
	_, _, err = svc.Redeem(ctx, planless, wallet.AddOnStayActive)
	var tierErr *TierIneligibleError
	require.ErrorAs(t, err, &tierErr)
	assert.Empty(t, tierErr.PlanSlug)
}

// staleReads answers Get with an outdated wallet while writes go to the store.
type staleReads struct {
	WalletService
	stale wallet.Wallet
}

func (s staleReads) Get(context.Context, uuid.UUID) (wallet.Wallet, error) {
	return s.stale, nil
}

func TestRedeemChecksTierOnLockedWallet(t *testing.T) {
	store := memstore.New()
	wallets := walletsvc.New(store.Wallets(), nil, logger.New("test")).WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	acct := seed(store, "starter", 0)
	_, err := wallets.EarnAddOn(ctx, acct, wallet.AddOnBoostPack, 100, 1, "")
	require.NoError(t, err)

	professional := "professional"
	stale, err := wallets.Get(ctx, acct)
	require.NoError(t, err)
	stale.PlanSlug = &professional

	svc := New(staleReads{WalletService: wallets, stale: stale}, plans.Default())
	_, _, err = svc.Redeem(ctx, acct, wallet.AddOnBoostPack)
	assert.True(t, IsTierIneligible(err))

	w, _ := store.GetWallet(ctx, acct)
	assert.Equal(t, 100, w.BoostPackEarned)
	assert.Zero(t, w.BonusSeats)
}

func TestOverview(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	acct := seed(store, "starter", 0)
	_, err := svc.Earn(ctx, acct, wallet.AddOnStayActive, nil, nil, "")
	require.NoError(t, err)
	_, _, err = svc.Redeem(ctx, acct, wallet.AddOnStayActive)
	require.NoError(t, err)

	ov, err := svc.Overview(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, "Starter", ov.PlanName)
	require.Len(t, ov.AddOns, 3)

	byKind := map[wallet.AddOnKind]KindOverview{}
	for _, k := range ov.AddOns {
		byKind[k.Kind] = k
	}
	assert.True(t, byKind[wallet.AddOnStayActive].Available)
	assert.False(t, byKind[wallet.AddOnBoostPack].Available)
	assert.Equal(t, 30, byKind[wallet.AddOnStayActive].CreditValue)
	require.NotNil(t, byKind[wallet.AddOnStayActive].LastRedeemedAt)
	assert.True(t, byKind[wallet.AddOnStayActive].LastRedeemedAt.Equal(fixedNow))
}

func TestUnknownKind(t *testing.T) {
	svc, store := newTestService(t)
	acct := seed(store, "professional", 0)
	_, _, err := svc.Redeem(context.Background(), acct, wallet.AddOnKind("gold"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
