package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ReviewState
		ok       bool
	}{
		{ReviewPending, ReviewPosted, true},
		{ReviewPending, ReviewDeclined, true},
		{ReviewPending, ReviewPending, false},
		{ReviewPosted, ReviewDeclined, false},
		{ReviewDeclined, ReviewPosted, false},
		{ReviewPosted, ReviewPending, false},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s should be allowed, got %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s should be rejected, got %v", tc.from, tc.to, err)
		}
	}
}

func TestIsDueForPosting(t *testing.T) {
	anchor := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lead := Lead{ReviewState: ReviewPending, PostedAt: &anchor, DayOffset: 3}

	if lead.IsDueForPosting(anchor.AddDate(0, 0, 2)) {
		t.Fatalf("lead should not be due before the offset elapses")
	}
	if !lead.IsDueForPosting(anchor.AddDate(0, 0, 3)) {
		t.Fatalf("lead should be due exactly at anchor + offset")
	}

	unanchored := Lead{ReviewState: ReviewPending}
	if unanchored.IsDueForPosting(anchor.AddDate(1, 0, 0)) {
		t.Fatalf("lead without an approval anchor is never due")
	}

	posted := Lead{ReviewState: ReviewPosted, PostedAt: &anchor}
	if posted.IsDueForPosting(anchor.AddDate(0, 0, 10)) {
		t.Fatalf("posted lead is not due again")
	}
}

func TestSummaryRedactsContact(t *testing.T) {
	lead := Lead{
		TypeLabel:      "Roofing",
		ContactName:    "Dana",
		ContactEmail:   "dana@example.com",
		ContactPhone:   "+16502530000",
		RelevanceScore: 17,
	}
	summary := lead.Summary()
	if !summary.HasPhone || !summary.HasEmail {
		t.Fatalf("summary should flag available channels")
	}
	if summary.UnlockCost != 17 {
		t.Fatalf("unlock cost should equal the stored score, got %d", summary.UnlockCost)
	}
	detail := lead.Detail()
	if detail.ContactEmail != "dana@example.com" || detail.ContactPhone != "+16502530000" {
		t.Fatalf("detail should carry contact fields")
	}
}
