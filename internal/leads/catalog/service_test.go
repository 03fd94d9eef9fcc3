package catalog

import (
	"context"
	"testing"
	"time"

	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/testutil/memstore"
	"leadledger_backend/platform/apperr"

	"github.com/google/uuid"
)

var base = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func addLead(t *testing.T, store *memstore.Store, label, desc, email string, score int, postedHoursAgo int) domain.Lead {
	t.Helper()
	posted := base.Add(-time.Duration(postedHoursAgo) * time.Hour)
	l, err := store.Create(context.Background(), domain.Lead{
		TypeLabel:      label,
		Description:    desc,
		ContactName:    "Pat",
		ContactEmail:   email,
		RelevanceScore: score,
		ReviewState:    domain.ReviewPosted,
		PostedAt:       &posted,
		SourceKind:     domain.SourceIngested,
		CreatedAt:      posted,
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestListCollapsesDuplicatesKeepingHighestScore(t *testing.T) {
	store := memstore.New()
	a := addLead(t, store, "Roofing", "Replace shingles", "pat@example.com", 14, 3)
	b := addLead(t, store, "roofing ", "replace shingles", "PAT@example.com", 18, 5)
	c := addLead(t, store, "Plumbing", "New water heater", "sam@example.com", 16, 1)

	svc := New(store, 0)
	page, err := svc.List(context.Background(), Query{Filter: domain.ListFilter{States: []domain.ReviewState{domain.ReviewPosted}}})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Collapsed != 1 {
		t.Fatalf("expected 2 distinct and 1 collapsed, got total=%d collapsed=%d", page.Total, page.Collapsed)
	}
	if page.Items[0].ID != b.ID || page.Items[1].ID != c.ID {
		t.Fatalf("expected [b, c], got [%s, %s]", page.Items[0].TypeLabel, page.Items[1].TypeLabel)
	}
	for _, it := range page.Items {
		if it.ID == a.ID {
			t.Fatal("lower-scored duplicate must be collapsed")
		}
	}
}

func TestListRecencyOrderKeepsNewestDuplicate(t *testing.T) {
	store := memstore.New()
	older := addLead(t, store, "Roofing", "Replace shingles", "pat@example.com", 20, 10)
	newer := addLead(t, store, "Roofing", "Replace shingles", "pat@example.com", 11, 1)

	page, err := New(store, 0).List(context.Background(), Query{Order: domain.OrderRecencyDesc})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != newer.ID {
		t.Fatalf("expected newest duplicate to survive, got %+v (older=%s)", page.Items, older.ID)
	}
}

func TestListPaginatesAfterDedup(t *testing.T) {
	store := memstore.New()
	for i := 0; i < 5; i++ {
		addLead(t, store, "Painting", "Same job", "x@example.com", 12, i)
	}
	want := []uuid.UUID{}
	for i := 0; i < 5; i++ {
		l := addLead(t, store, "Job", uuid.NewString(), "y@example.com", 20-i, 0)
		want = append(want, l.ID)
	}

	page, err := New(store, 0).List(context.Background(), Query{Offset: 2, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 6 || page.Collapsed != 4 {
		t.Fatalf("unexpected totals: %+v", page)
	}
	if len(page.Items) != 3 || page.Items[0].ID != want[2] {
		t.Fatalf("unexpected page items: %d", len(page.Items))
	}

	empty, err := New(store, 0).List(context.Background(), Query{Offset: 50})
	if err != nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %d items err=%v", len(empty.Items), err)
	}
}

func TestListRejectsUnknownOrder(t *testing.T) {
	_, err := New(memstore.New(), 0).List(context.Background(), Query{Order: "random"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestFeedHidesUnpostedAndMarked(t *testing.T) {
	store := memstore.New()
	visible := addLead(t, store, "A", "one", "a@example.com", 15, 1)
	marked := addLead(t, store, "B", "two", "b@example.com", 15, 1)
	pending, err := store.Create(context.Background(), domain.Lead{
		TypeLabel: "C", ReviewState: domain.ReviewPending, SourceKind: domain.SourceIngested, RelevanceScore: 19,
	})
	if err != nil {
		t.Fatal(err)
	}

	acct := uuid.New()
	if err := store.SetMark(context.Background(), acct, marked.ID, domain.MarkNotInterested); err != nil {
		t.Fatal(err)
	}

	page, err := New(store, 0).Feed(context.Background(), acct, Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != visible.ID {
		t.Fatalf("expected only the visible lead, got %d items (pending=%s)", len(page.Items), pending.ID)
	}

	other, _ := New(store, 0).Feed(context.Background(), uuid.New(), Query{})
	if len(other.Items) != 2 {
		t.Fatalf("marks must be per account, got %d items", len(other.Items))
	}
}

func TestMaxScanIsCapped(t *testing.T) {
	store := memstore.New()
	for i := 0; i < 4; i++ {
		addLead(t, store, "Job", uuid.NewString(), "z@example.com", 15, i)
	}
	page, err := New(store, 2).List(context.Background(), Query{Filter: domain.ListFilter{MaxScan: 100}})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("expected scan capped at 2 rows, got %d", page.Total)
	}
}
