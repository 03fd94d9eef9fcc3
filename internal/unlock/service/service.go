// Package service implements the spend-credits-to-unlock flow: one debit and
// one permanent grant per (account, lead), committed together.
package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"leadledger_backend/internal/events"
	"leadledger_backend/internal/leads/domain"
	leadsrepo "leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/wallet"
	walletsvc "leadledger_backend/internal/wallet/service"
	"leadledger_backend/platform/apperr"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/metrics"
	"leadledger_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportPageSize  = 500
	maxNotesLength  = 4000
)

// LeadReader loads a lead by id, returning leadsrepo.ErrNotFound when absent.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Debiter spends credits inside a caller-owned transaction.
type Debiter interface {
	DebitIn(ctx context.Context, tx wallet.Tx, accountID uuid.UUID, amount int, reference string) (wallet.Wallet, wallet.Entry, error)
}

type Service struct {
	store    unlock.Store
	leads    LeadReader
	wallets  Debiter
	cache    unlock.GrantCache
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store unlock.Store, leads LeadReader, wallets Debiter, cache unlock.GrantCache, eventBus events.Bus, log *logger.Logger) *Service {
	if cache == nil {
		cache = unlock.NopCache{}
	}
	return &Service{
		store:    store,
		leads:    leads,
		wallets:  wallets,
		cache:    cache,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Unlock reveals a posted lead to accountID, debiting its relevance score.
// Repeated calls return the original grant without debiting again.
func (s *Service) Unlock(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Result, error) {
	if g, ok := s.cached(ctx, accountID, leadID); ok {
		return s.replay(ctx, g), nil
	}

	existing, err := s.store.GetGrant(ctx, accountID, leadID)
	if err == nil {
		s.remember(ctx, existing)
		return s.replay(ctx, existing), nil
	}
	if !errors.Is(err, unlock.ErrGrantNotFound) {
		metrics.RecordUnlock(metrics.OutcomeError)
		return unlock.Result{}, apperr.Wrap(apperr.KindInternal, "failed to load unlock", err)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadsrepo.ErrNotFound) || (err == nil && !lead.IsPosted()) {
		metrics.RecordUnlock(metrics.OutcomeUnavailable)
		return unlock.Result{}, apperr.Wrap(apperr.KindNotFound, "lead not available", unlock.ErrLeadNotAvailable)
	}
	if err != nil {
		metrics.RecordUnlock(metrics.OutcomeError)
		return unlock.Result{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	res, err := s.grant(ctx, accountID, lead)
	if errors.Is(err, wallet.ErrConcurrencyConflict) {
		res, err = s.grant(ctx, accountID, lead)
	}
	if err != nil {
		metrics.RecordUnlock(outcomeFor(err))
		return unlock.Result{}, walletsvc.MapError(err)
	}

	s.remember(ctx, res.Grant)
	if res.Replayed {
		return s.replay(ctx, res.Grant), nil
	}

	metrics.RecordUnlock(metrics.OutcomeGranted)
	metrics.RecordCreditsSpent(res.Grant.CreditsSpent)
	s.log.UnlockEvent(ctx, accountID, leadID, res.Grant.CreditsSpent, false)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadUnlocked{
			BaseEvent:    events.NewBaseEventAt(s.now()),
			AccountID:    accountID,
			LeadID:       leadID,
			CreditsSpent: res.Grant.CreditsSpent,
		})
	}
	return res, nil
}

// grant runs the locked debit and grant insert as one transaction.
func (s *Service) grant(ctx context.Context, accountID uuid.UUID, lead domain.Lead) (unlock.Result, error) {
	cost := lead.RelevanceScore
	var res unlock.Result

	err := s.store.InTx(ctx, func(tx unlock.Tx) error {
		if _, err := tx.LockWallet(ctx, accountID); err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return &wallet.InsufficientCreditsError{Required: cost, Available: 0}
			}
			return err
		}

		existing, err := tx.GetGrant(ctx, accountID, lead.ID)
		if err == nil {
			res = unlock.Result{Grant: existing, Replayed: true}
			return nil
		}
		if !errors.Is(err, unlock.ErrGrantNotFound) {
			return err
		}

		w, _, err := s.wallets.DebitIn(ctx, tx, accountID, cost, "unlock:"+lead.ID.String())
		if err != nil {
			return err
		}

		g := unlock.Grant{
			ID:           uuid.New(),
			AccountID:    accountID,
			LeadID:       lead.ID,
			CreditsSpent: cost,
			UnlockedAt:   s.now(),
			Snapshot:     lead.Detail(),
		}
		if err := tx.InsertGrant(ctx, g); err != nil {
			return err
		}
		spendable := w.Spendable
		res = unlock.Result{Grant: g, SpendableAfter: &spendable}
		return nil
	})
	return res, err
}

func (s *Service) replay(ctx context.Context, g unlock.Grant) unlock.Result {
	metrics.RecordUnlock(metrics.OutcomeReplayed)
	s.log.UnlockEvent(ctx, g.AccountID, g.LeadID, g.CreditsSpent, true)
	return unlock.Result{Grant: g, Replayed: true}
}

func (s *Service) cached(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Grant, bool) {
	g, ok, err := s.cache.Get(ctx, accountID, leadID)
	if err != nil {
		s.log.Warn("grant cache read failed", "error", err)
		return unlock.Grant{}, false
	}
	return g, ok
}

func (s *Service) remember(ctx context.Context, g unlock.Grant) {
	if err := s.cache.Put(ctx, g); err != nil {
		s.log.Warn("grant cache write failed", "error", err)
	}
}

func outcomeFor(err error) string {
	var insufficient *wallet.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return metrics.OutcomeInsufficient
	case errors.Is(err, wallet.ErrConcurrencyConflict), errors.Is(err, wallet.ErrReferenceApplied):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

// Get returns the grant for one lead.
func (s *Service) Get(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Grant, error) {
	g, err := s.store.GetGrant(ctx, accountID, leadID)
	if errors.Is(err, unlock.ErrGrantNotFound) {
		return unlock.Grant{}, apperr.NotFound("lead has not been unlocked")
	}
	if err != nil {
		return unlock.Grant{}, err
	}
	return g, nil
}

// List returns grants newest first.
func (s *Service) List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]unlock.Grant, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListGrants(ctx, accountID, limit, offset)
}

// UpdateNotes replaces the free-text notes on a grant. A nil or blank value clears them.
func (s *Service) UpdateNotes(ctx context.Context, accountID, leadID uuid.UUID, notes *string) (unlock.Grant, error) {
	notes = sanitize.TextPtr(notes)
	if notes != nil && *notes == "" {
		notes = nil
	} else if notes != nil {
		trimmed := sanitize.Truncate(*notes, maxNotesLength)
		notes = &trimmed
	}

	g, err := s.store.UpdateNotes(ctx, accountID, leadID, notes)
	if errors.Is(err, unlock.ErrGrantNotFound) {
		return unlock.Grant{}, apperr.NotFound("lead has not been unlocked")
	}
	if err != nil {
		return unlock.Grant{}, err
	}
	s.remember(ctx, g)
	return g, nil
}

// IsUnlocked reports whether the account holds a grant for leadID.
func (s *Service) IsUnlocked(ctx context.Context, accountID, leadID uuid.UUID) (bool, error) {
	if _, ok := s.cached(ctx, accountID, leadID); ok {
		return true, nil
	}
	_, err := s.store.GetGrant(ctx, accountID, leadID)
	if errors.Is(err, unlock.ErrGrantNotFound) {
		return false, nil
	}
	return err == nil, err
}

// UnlockedSet reports which of leadIDs the account has unlocked.
func (s *Service) UnlockedSet(ctx context.Context, accountID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return s.store.UnlockedLeadIDs(ctx, accountID, leadIDs)
}

var exportHeader = []string{
	"lead_id", "unlocked_at", "credits_spent", "type_label", "address",
	"contact_name", "contact_email", "contact_phone", "estimated_value", "notes",
}

// ExportCSV writes every grant for the account, newest first.
func (s *Service) ExportCSV(ctx context.Context, accountID uuid.UUID, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for offset := 0; ; offset += exportPageSize {
		page, _, err := s.store.ListGrants(ctx, accountID, exportPageSize, offset)
		if err != nil {
			return err
		}
		for _, g := range page {
			if err := cw.Write(exportRow(g)); err != nil {
				return err
			}
		}
		if len(page) < exportPageSize {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRow(g unlock.Grant) []string {
	return []string{
		g.LeadID.String(),
		g.UnlockedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(g.CreditsSpent),
		g.Snapshot.TypeLabel,
		g.Snapshot.Address,
		g.Snapshot.ContactName,
		g.Snapshot.ContactEmail,
		g.Snapshot.ContactPhone,
		deref(g.Snapshot.EstimatedValue),
		deref(g.Notes),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
