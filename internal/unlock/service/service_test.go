package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"leadledger_backend/internal/events"
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/testutil/memstore"
	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/wallet"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	wallets *walletsvc.Service
	store   *memstore.Store
	bus     *events.InMemoryBus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	bus := events.NewInMemoryBus(nil)
	log := logger.New("test")
	clock := func() time.Time { return fixedNow }

	wallets := walletsvc.New(store.Wallets(), bus, log).WithClock(clock)
	svc := New(store.Grants(), store, wallets, nil, bus, log).WithClock(clock)
	return fixture{svc: svc, wallets: wallets, store: store, bus: bus}
}

func (f fixture) seedWallet(spendable int) uuid.UUID {
	w := wallet.NewWallet(uuid.New(), nil, fixedNow)
	w.Spendable = spendable
	f.store.PutWallet(w)
	return w.AccountID
}

func (f fixture) seedLead(t *testing.T, score int, state domain.ReviewState) domain.Lead {
	t.Helper()
	posted := fixedNow.Add(-time.Hour)
	l, err := f.store.Create(context.Background(), domain.Lead{
		TypeLabel:      "Roof replacement",
		Description:    "Full tear-off and re-roof",
		Address:        "12 Oak St",
		ContactName:    "Dana Owner",
		ContactEmail:   "dana@example.com",
		ContactPhone:   "+16502530000",
		RelevanceScore: score,
		ReviewState:    state,
		PostedAt:       &posted,
		SourceKind:     domain.SourceIngested,
	})
	require.NoError(t, err)
	return l
}

func TestUnlockDebitsScoreAndReturnsDetail(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 17, domain.ReviewPosted)

	res, err := f.svc.Unlock(context.Background(), acct, lead.ID)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 17, res.Grant.CreditsSpent)
	assert.Equal(t, "dana@example.com", res.Grant.Snapshot.ContactEmail)
	require.NotNil(t, res.SpendableAfter)
	assert.Equal(t, 33, *res.SpendableAfter)

	w, err := f.wallets.Get(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, 33, w.Spendable)
	assert.Equal(t, int64(17), w.TotalSpent)
}

func TestUnlockIsIdempotent(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 12, domain.ReviewPosted)
	ctx := context.Background()

	first, err := f.svc.Unlock(ctx, acct, lead.ID)
	require.NoError(t, err)
	second, err := f.svc.Unlock(ctx, acct, lead.ID)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Grant.ID, second.Grant.ID)
	assert.Equal(t, first.Grant.Snapshot, second.Grant.Snapshot)

	w, _ := f.wallets.Get(ctx, acct)
	assert.Equal(t, 38, w.Spendable)
	assert.Equal(t, int64(12), w.TotalSpent)
	assert.Len(t, f.store.Entries(acct), 1)
}

func TestUnlockReplayIgnoresLaterScoreChange(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 12, domain.ReviewPosted)
	ctx := context.Background()

	_, err := f.svc.Unlock(ctx, acct, lead.ID)
	require.NoError(t, err)
	_, err = f.store.UpdateScore(ctx, lead.ID, 19, "trs-v2", fixedNow)
	require.NoError(t, err)

	res, err := f.svc.Unlock(ctx, acct, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Grant.CreditsSpent)
	assert.Equal(t, 12, res.Grant.Snapshot.RelevanceScore)
}

func TestUnlockConcurrentSingleDebit(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(100)
	lead := f.seedLead(t, 15, domain.ReviewPosted)

	const n = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		replayed int
		grantIDs = map[uuid.UUID]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Unlock(context.Background(), acct, lead.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			grantIDs[res.Grant.ID] = true
			if res.Replayed {
				replayed++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, grantIDs, 1)
	assert.Equal(t, n-1, replayed)
	assert.Equal(t, 1, f.store.GrantCount())

	w, _ := f.wallets.Get(context.Background(), acct)
	assert.Equal(t, 85, w.Spendable)
	assert.Equal(t, int64(15), w.TotalSpent)
}

func TestUnlockInsufficientLeavesWalletUnchanged(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(14)
	lead := f.seedLead(t, 15, domain.ReviewPosted)

	_, err := f.svc.Unlock(context.Background(), acct, lead.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPaymentRequired))

	var insufficient *wallet.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 15, insufficient.Required)
	assert.Equal(t, 14, insufficient.Available)

	w, _ := f.wallets.Get(context.Background(), acct)
	assert.Equal(t, 14, w.Spendable)
	assert.Zero(t, f.store.GrantCount())
	assert.Empty(t, f.store.Entries(acct))
}

func TestUnlockNeverGrantsWhenDebitReferenceIsTaken(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 17, domain.ReviewPosted)
	ctx := context.Background()

	_, err := f.wallets.Deposit(ctx, acct, 1, wallet.BucketSpendable, "unlock:"+lead.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Unlock(ctx, acct, lead.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.ErrorIs(t, err, wallet.ErrReferenceApplied)

	w, _ := f.wallets.Get(ctx, acct)
	assert.Equal(t, 51, w.Spendable)
	assert.Zero(t, w.TotalSpent)
	assert.Zero(t, f.store.GrantCount())
	assert.Len(t, f.store.Entries(acct), 1)
}

func TestUnlockWithoutWalletIsInsufficient(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t, 11, domain.ReviewPosted)

	_, err := f.svc.Unlock(context.Background(), uuid.New(), lead.ID)
	var insufficient *wallet.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 0, insufficient.Available)
}

func TestUnlockRejectsUnpostedAndMissingLeads(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	pending := f.seedLead(t, 15, domain.ReviewPending)
	declined := f.seedLead(t, 15, domain.ReviewDeclined)

	for _, id := range []uuid.UUID{pending.ID, declined.ID, uuid.New()} {
		_, err := f.svc.Unlock(context.Background(), acct, id)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "lead %s: %v", id, err)
		assert.ErrorIs(t, err, unlock.ErrLeadNotAvailable)
	}
	w, _ := f.wallets.Get(context.Background(), acct)
	assert.Equal(t, 50, w.Spendable)
}

func TestUnlockRollsBackDebitWhenGrantFails(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 15, domain.ReviewPosted)

	f.store.FailInsertGrant = errors.New("disk full")
	_, err := f.svc.Unlock(context.Background(), acct, lead.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	w, _ := f.wallets.Get(context.Background(), acct)
	assert.Equal(t, 50, w.Spendable)
	assert.Empty(t, f.store.Entries(acct))
}

func TestUnlockRetriesOneConflict(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 15, domain.ReviewPosted)

	f.store.Conflicts = 1
	res, err := f.svc.Unlock(context.Background(), acct, lead.ID)
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	other := f.seedLead(t, 10, domain.ReviewPosted)
	f.store.Conflicts = 2
	_, err = f.svc.Unlock(context.Background(), acct, other.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestUpdateNotesAndExport(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 15, domain.ReviewPosted)
	ctx := context.Background()

	_, err := f.svc.Unlock(ctx, acct, lead.ID)
	require.NoError(t, err)

	notes := "  <b>called</b>, quote Friday "
	g, err := f.svc.UpdateNotes(ctx, acct, lead.ID, &notes)
	require.NoError(t, err)
	require.NotNil(t, g.Notes)
	assert.Equal(t, "called, quote Friday", *g.Notes)

	blank := "   "
	g, err = f.svc.UpdateNotes(ctx, acct, lead.ID, &blank)
	require.NoError(t, err)
	assert.Nil(t, g.Notes)

	_, err = f.svc.UpdateNotes(ctx, acct, uuid.New(), &notes)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, acct, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, lead.ID.String(), records[1][0])
	assert.Equal(t, "15", records[1][2])
	assert.Equal(t, "dana@example.com", records[1][6])
}

func TestUnlockPublishesOnlyOnGrant(t *testing.T) {
	f := newFixture(t)
	acct := f.seedWallet(50)
	lead := f.seedLead(t, 15, domain.ReviewPosted)

	var (
		mu    sync.Mutex
		count int
	)
	f.bus.Subscribe(events.LeadUnlocked{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	}))

	_, _ = f.svc.Unlock(context.Background(), acct, lead.ID)
	_, _ = f.svc.Unlock(context.Background(), acct, lead.ID)
	f.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
