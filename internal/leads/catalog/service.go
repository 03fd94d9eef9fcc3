// Package catalog serves deduplicated, ordered lead listings.
package catalog

import (
	"context"
	"sort"

	"leadledger_backend/internal/leads/dedup"
	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/leads/repository"
	"leadledger_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultLimit   = 20
	maxLimit       = 100
	defaultMaxScan = 5000
)

// Repository is the storage the catalog reads from.
type Repository interface {
	repository.LeadLister
}

// Query is one listing request. Offset and Limit apply after deduplication.
type Query struct {
	Filter domain.ListFilter
	Order  domain.Order
	Offset int
	Limit  int
}

// Page is a deduplicated slice of the listing.
type Page struct {
	Items []domain.Lead
	// Total counts distinct leads after deduplication.
	Total int
	// Collapsed counts rows dropped as duplicates.
	Collapsed int
	Offset    int
	Limit     int
}

type Service struct {
	repo    Repository
	maxScan int
}

// New creates the catalog. maxScan caps how many rows one listing reads.
func New(repo Repository, maxScan int) *Service {
	if maxScan <= 0 {
		maxScan = defaultMaxScan
	}
	return &Service{repo: repo, maxScan: maxScan}
}

// List filters, sorts, collapses duplicates in one pass, then paginates.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	if q.Order == "" {
		q.Order = domain.OrderScoreDesc
	}
	if !q.Order.Valid() {
		return Page{}, apperr.BadRequest("unknown order").WithDetails(map[string]string{"order": string(q.Order)})
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Filter.MaxScan <= 0 || q.Filter.MaxScan > s.maxScan {
		q.Filter.MaxScan = s.maxScan
	}

	rows, err := s.repo.List(ctx, q.Filter, q.Order)
	if err != nil {
		return Page{}, err
	}

	// Storage already orders rows; the stable sort makes the result
	// independent of the backing store.
	sort.SliceStable(rows, func(i, j int) bool {
		return q.Order.Less(rows[i], rows[j])
	})

	distinct := dedup.Collapse(rows)
	page := Page{
		Total:     len(distinct),
		Collapsed: len(rows) - len(distinct),
		Offset:    q.Offset,
		Limit:     q.Limit,
		Items:     []domain.Lead{},
	}
	if q.Offset >= len(distinct) {
		return page, nil
	}
	end := q.Offset + q.Limit
	if end > len(distinct) {
		end = len(distinct)
	}
	page.Items = distinct[q.Offset:end]
	return page, nil
}

// Feed lists posted leads for an account, hiding ones it unlocked or marked.
func (s *Service) Feed(ctx context.Context, accountID uuid.UUID, q Query) (Page, error) {
	q.Filter.States = []domain.ReviewState{domain.ReviewPosted}
	id := accountID
	q.Filter.ExcludeFor = &id
	return s.List(ctx, q)
}
