// Package memstore is an in-memory implementation of the lead, wallet and
// grant stores for service tests. Transactions are serialized by one mutex
// and staged until commit, so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"leadledger_backend/internal/leads/domain"
	leadsrepo "leadledger_backend/internal/leads/repository"
	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/wallet"

	"github.com/google/uuid"
)

type grantKey struct{ account, lead uuid.UUID }

type markKey struct {
	account, lead uuid.UUID
	mark          domain.Mark
}

type Store struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]wallet.Wallet
	entries []wallet.Entry
	grants  map[grantKey]unlock.Grant
	leads   map[uuid.UUID]domain.Lead
	marks   map[markKey]time.Time
	seq     int64

	// Conflicts makes the next N transactions fail with wallet.ErrConcurrencyConflict.
	Conflicts int
	// FailInsertGrant is returned by InsertGrant while set.
	FailInsertGrant error
	// Transactions counts InTx calls, including failed ones.
	Transactions int
}

func New() *Store {
	return &Store{
		wallets: make(map[uuid.UUID]wallet.Wallet),
		grants:  make(map[grantKey]unlock.Grant),
		leads:   make(map[uuid.UUID]domain.Lead),
		marks:   make(map[markKey]time.Time),
	}
}

// Wallets returns the store as a wallet.Store.
func (s *Store) Wallets() wallet.Store { return walletView{s} }

// Grants returns the store as an unlock.Store.
func (s *Store) Grants() unlock.Store { return grantView{s} }

// PutWallet seeds or replaces a wallet.
func (s *Store) PutWallet(w wallet.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.AccountID] = w
}

// Entries returns a copy of the committed ledger for accountID, oldest first.
func (s *Store) Entries(accountID uuid.UUID) []wallet.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wallet.Entry, 0)
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// GrantCount returns the number of committed grants.
func (s *Store) GrantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}

func (s *Store) LeadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// ---- transactions ----

type tx struct {
	s       *Store
	wallets map[uuid.UUID]wallet.Wallet
	entries []wallet.Entry
	grants  map[grantKey]unlock.Grant
}

func (s *Store) inTx(fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Transactions++
	if s.Conflicts > 0 {
		s.Conflicts--
		return wallet.ErrConcurrencyConflict
	}

	t := &tx{
		s:       s,
		wallets: make(map[uuid.UUID]wallet.Wallet),
		grants:  make(map[grantKey]unlock.Grant),
	}
	if err := fn(t); err != nil {
		return err
	}

	for id, w := range t.wallets {
		s.wallets[id] = w
	}
	for _, e := range t.entries {
		e.ID = int64(len(s.entries) + 1)
		s.entries = append(s.entries, e)
	}
	for k, g := range t.grants {
		s.grants[k] = g
	}
	return nil
}

func (t *tx) LockWallet(_ context.Context, accountID uuid.UUID) (wallet.Wallet, error) {
	if w, ok := t.wallets[accountID]; ok {
		return w, nil
	}
	if w, ok := t.s.wallets[accountID]; ok {
		return w, nil
	}
	return wallet.Wallet{}, wallet.ErrWalletNotFound
}

func (t *tx) InsertWallet(_ context.Context, w wallet.Wallet) error {
	if _, ok := t.s.wallets[w.AccountID]; ok {
		return nil
	}
	if _, ok := t.wallets[w.AccountID]; !ok {
		t.wallets[w.AccountID] = w
	}
	return nil
}

func (t *tx) SaveWallet(_ context.Context, w wallet.Wallet) error {
	_, staged := t.wallets[w.AccountID]
	_, committed := t.s.wallets[w.AccountID]
	if !staged && !committed {
		return wallet.ErrWalletNotFound
	}
	t.wallets[w.AccountID] = w
	return nil
}

func (t *tx) AppendEntry(_ context.Context, e wallet.Entry) error {
	t.entries = append(t.entries, e)
	return nil
}

func (t *tx) HasReference(_ context.Context, accountID uuid.UUID, reference string) (bool, error) {
	for _, list := range [][]wallet.Entry{t.s.entries, t.entries} {
		for _, e := range list {
			if e.AccountID == accountID && e.Reference != nil && *e.Reference == reference {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *tx) GetGrant(_ context.Context, accountID, leadID uuid.UUID) (unlock.Grant, error) {
	k := grantKey{accountID, leadID}
	if g, ok := t.grants[k]; ok {
		return g, nil
	}
	if g, ok := t.s.grants[k]; ok {
		return g, nil
	}
	return unlock.Grant{}, unlock.ErrGrantNotFound
}

func (t *tx) InsertGrant(_ context.Context, g unlock.Grant) error {
	if t.s.FailInsertGrant != nil {
		return t.s.FailInsertGrant
	}
	k := grantKey{g.AccountID, g.LeadID}
	if _, ok := t.s.grants[k]; ok {
		return errors.Join(wallet.ErrConcurrencyConflict, unlock.ErrGrantExists)
	}
	if _, ok := t.grants[k]; ok {
		return errors.Join(wallet.ErrConcurrencyConflict, unlock.ErrGrantExists)
	}
	t.grants[k] = g
	return nil
}

// ---- wallet.Store ----

type walletView struct{ *Store }

func (v walletView) InTx(_ context.Context, fn func(tx wallet.Tx) error) error {
	return v.inTx(func(t *tx) error { return fn(t) })
}

func (s *Store) GetWallet(_ context.Context, accountID uuid.UUID) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[accountID]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, nil
}

func (s *Store) ListEntries(_ context.Context, accountID uuid.UUID, limit, offset int) ([]wallet.Entry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]wallet.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID == accountID {
			all = append(all, s.entries[i])
		}
	}
	return page(all, limit, offset), len(all), nil
}

func (s *Store) ListTrialsDue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, w := range s.wallets {
		if w.TrialExpired(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ---- unlock.Store ----

type grantView struct{ *Store }

func (v grantView) InTx(_ context.Context, fn func(tx unlock.Tx) error) error {
	return v.inTx(func(t *tx) error { return fn(t) })
}

func (s *Store) GetGrant(_ context.Context, accountID, leadID uuid.UUID) (unlock.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey{accountID, leadID}]
	if !ok {
		return unlock.Grant{}, unlock.ErrGrantNotFound
	}
	return g, nil
}

func (s *Store) ListGrants(_ context.Context, accountID uuid.UUID, limit, offset int) ([]unlock.Grant, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]unlock.Grant, 0)
	for k, g := range s.grants {
		if k.account == accountID {
			all = append(all, g)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UnlockedAt.Equal(all[j].UnlockedAt) {
			return all[i].UnlockedAt.After(all[j].UnlockedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return page(all, limit, offset), len(all), nil
}

func (s *Store) UpdateNotes(_ context.Context, accountID, leadID uuid.UUID, notes *string) (unlock.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := grantKey{accountID, leadID}
	g, ok := s.grants[k]
	if !ok {
		return unlock.Grant{}, unlock.ErrGrantNotFound
	}
	g.Notes = notes
	s.grants[k] = g
	return g, nil
}

func (s *Store) UnlockedLeadIDs(_ context.Context, accountID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]bool, len(leadIDs))
	for _, id := range leadIDs {
		if _, ok := s.grants[grantKey{accountID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// ---- leads ----

func (s *Store) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ResubmissionOf != nil {
		if _, ok := s.leads[*lead.ResubmissionOf]; !ok {
			return domain.Lead{}, leadsrepo.ErrUnknownLeadRef
		}
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	s.seq++
	lead.Seq = s.seq
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	lead.UpdatedAt = lead.CreatedAt
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, leadsrepo.ErrNotFound
	}
	return l, nil
}

func (s *Store) List(_ context.Context, filter domain.ListFilter, order domain.Order) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if s.matches(l, filter) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return order.Less(out[i], out[j]) })
	if filter.MaxScan > 0 && len(out) > filter.MaxScan {
		out = out[:filter.MaxScan]
	}
	return out, nil
}

func (s *Store) matches(l domain.Lead, f domain.ListFilter) bool {
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			if l.ReviewState == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SourceKind != "" && l.SourceKind != f.SourceKind {
		return false
	}
	if label := strings.TrimSpace(f.TypeLabel); label != "" && !strings.EqualFold(l.TypeLabel, label) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(l.TypeLabel + "\n" + l.Description + "\n" + l.Address)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	if f.MinScore > 0 && l.RelevanceScore < f.MinScore {
		return false
	}
	if f.PostedSince != nil && (l.PostedAt == nil || l.PostedAt.Before(*f.PostedSince)) {
		return false
	}
	if f.UploadedBy != nil && (l.UploadedBy == nil || *l.UploadedBy != *f.UploadedBy) {
		return false
	}
	if f.ExcludeFor != nil {
		if _, ok := s.grants[grantKey{*f.ExcludeFor, l.ID}]; ok {
			return false
		}
		for _, m := range []domain.Mark{domain.MarkSaved, domain.MarkNotInterested} {
			if _, ok := s.marks[markKey{*f.ExcludeFor, l.ID, m}]; ok {
				return false
			}
		}
	}
	return true
}

func (s *Store) transition(id uuid.UUID, apply func(l *domain.Lead)) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, leadsrepo.ErrNotFound
	}
	if l.ReviewState != domain.ReviewPending {
		return domain.Lead{}, leadsrepo.ErrNotPending
	}
	apply(&l)
	l.UpdatedAt = time.Now()
	s.leads[id] = l
	return l, nil
}

func (s *Store) Approve(_ context.Context, id uuid.UUID, anchor time.Time, dayOffset int, postNow bool) (domain.Lead, error) {
	return s.transition(id, func(l *domain.Lead) {
		a := anchor
		l.PostedAt = &a
		l.DayOffset = dayOffset
		if postNow {
			l.ReviewState = domain.ReviewPosted
		}
	})
}

func (s *Store) Decline(_ context.Context, id uuid.UUID, reason string) (domain.Lead, error) {
	return s.transition(id, func(l *domain.Lead) {
		r := reason
		l.ReviewState = domain.ReviewDeclined
		l.DeclineReason = &r
	})
}

func (s *Store) UpdateScore(_ context.Context, id uuid.UUID, score int, version string, scoredAt time.Time) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, leadsrepo.ErrNotFound
	}
	l.RelevanceScore = score
	l.ScoreVersion = version
	l.ScoredAt = scoredAt
	s.leads[id] = l
	return l, nil
}

func (s *Store) postLocked(l domain.Lead) domain.Lead {
	due, _ := l.PostingDueAt()
	l.ReviewState = domain.ReviewPosted
	l.PostedAt = &due
	s.leads[l.ID] = l
	return l
}

func (s *Store) PostDue(_ context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.IsDueForPosting(now) {
			due = append(due, l)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Seq < due[j].Seq })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i, l := range due {
		due[i] = s.postLocked(l)
	}
	return due, nil
}

func (s *Store) PostIfDue(_ context.Context, id uuid.UUID, now time.Time) (domain.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, false, leadsrepo.ErrNotFound
	}
	if !l.IsDueForPosting(now) {
		return l, false, nil
	}
	return s.postLocked(l), true, nil
}

func (s *Store) ListStaleScores(_ context.Context, currentVersion string, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.ScoreVersion != currentVersion {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SetMark(_ context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[leadID]; !ok {
		return leadsrepo.ErrNotFound
	}
	k := markKey{accountID, leadID, mark}
	if _, ok := s.marks[k]; !ok {
		s.marks[k] = time.Now()
	}
	return nil
}

func (s *Store) ClearMark(_ context.Context, accountID, leadID uuid.UUID, mark domain.Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, markKey{accountID, leadID, mark})
	return nil
}

func (s *Store) ListMarked(_ context.Context, accountID uuid.UUID, mark domain.Mark) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type marked struct {
		lead domain.Lead
		at   time.Time
	}
	items := make([]marked, 0)
	for k, at := range s.marks {
		if k.account == accountID && k.mark == mark {
			items = append(items, marked{s.leads[k.lead], at})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].at.Equal(items[j].at) {
			return items[i].at.After(items[j].at)
		}
		return items[i].lead.Seq < items[j].lead.Seq
	})
	out := make([]domain.Lead, len(items))
	for i, m := range items {
		out[i] = m.lead
	}
	return out, nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

var (
	_ wallet.Store             = walletView{}
	_ unlock.Store             = grantView{}
	_ wallet.Tx                = (*tx)(nil)
	_ unlock.Tx                = (*tx)(nil)
	_ leadsrepo.LeadReader     = (*Store)(nil)
	_ leadsrepo.LeadLister     = (*Store)(nil)
	_ leadsrepo.LeadWriter     = (*Store)(nil)
	_ leadsrepo.PostingSweeper = (*Store)(nil)
	_ leadsrepo.MarkStore      = (*Store)(nil)
	_ leadsrepo.Rescorer       = (*Store)(nil)
)
