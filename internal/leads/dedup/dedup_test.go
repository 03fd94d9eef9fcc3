package dedup

import (
	"strings"
	"testing"

	"leadledger_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func TestCanonicalKeyNormalizes(t *testing.T) {
	a := domain.Lead{TypeLabel: " Roofing ", Description: "Replace ROOF", ContactName: "Dana Diaz", ContactEmail: "DANA@example.com "}
	b := domain.Lead{TypeLabel: "roofing", Description: "replace roof  ", ContactName: " dana diaz", ContactEmail: "dana@example.com"}
	if CanonicalKey(a) != CanonicalKey(b) {
		t.Fatalf("expected equal keys, got %q and %q", CanonicalKey(a), CanonicalKey(b))
	}
}

func TestCanonicalKeyUsesDescriptionPrefixOnly(t *testing.T) {
	base := strings.Repeat("x", 200)
	a := domain.Lead{Description: base + " tail one"}
	b := domain.Lead{Description: base + " a different tail"}
	if CanonicalKey(a) != CanonicalKey(b) {
		t.Fatalf("descriptions differing after 200 chars must share a key")
	}

	c := domain.Lead{Description: strings.Repeat("x", 199) + "y"}
	if CanonicalKey(a) == CanonicalKey(c) {
		t.Fatalf("descriptions differing within 200 chars must not share a key")
	}
}

func TestCanonicalKeyFieldsCannotBleed(t *testing.T) {
	a := domain.Lead{TypeLabel: "ab", Description: "c"}
	b := domain.Lead{TypeLabel: "a", Description: "bc"}
	if CanonicalKey(a) == CanonicalKey(b) {
		t.Fatalf("field boundaries must be preserved")
	}

	sneaky := domain.Lead{TypeLabel: "a\x1fb"}
	plain := domain.Lead{TypeLabel: "a", Description: "b"}
	if CanonicalKey(sneaky) == CanonicalKey(plain) {
		t.Fatalf("separator inside a field must not forge a boundary")
	}
}

func TestCollapseKeepsFirstOccurrence(t *testing.T) {
	high := domain.Lead{ID: uuid.New(), TypeLabel: "HVAC", Description: "new unit", RelevanceScore: 18}
	low := domain.Lead{ID: uuid.New(), TypeLabel: "hvac", Description: "NEW UNIT", RelevanceScore: 12}
	other := domain.Lead{ID: uuid.New(), TypeLabel: "Plumbing", RelevanceScore: 15}

	got := Collapse([]domain.Lead{high, other, low})
	if len(got) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(got))
	}
	if got[0].ID != high.ID || got[1].ID != other.ID {
		t.Fatalf("unexpected survivors or order: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestCollapseGroupsEmptyKeys(t *testing.T) {
	got := Collapse([]domain.Lead{{ID: uuid.New()}, {ID: uuid.New()}})
	if len(got) != 1 {
		t.Fatalf("all-empty keys should group together, got %d leads", len(got))
	}
}

func TestCollapseIsIdempotent(t *testing.T) {
	in := []domain.Lead{
		{ID: uuid.New(), TypeLabel: "a"},
		{ID: uuid.New(), TypeLabel: "A"},
		{ID: uuid.New(), TypeLabel: "b"},
	}
	once := Collapse(in)
	twice := Collapse(once)
	if len(once) != len(twice) {
		t.Fatalf("collapse changed length on second pass")
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("collapse reordered leads on second pass")
		}
	}
}
