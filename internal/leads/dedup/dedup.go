// Package dedup collapses repeated submissions of the same lead at read time.
package dedup

import (
	"strings"

	"leadledger_backend/internal/leads/domain"
)

// descriptionPrefix is the number of description runes that take part in the key.
const descriptionPrefix = 200

// separator cannot appear in a key part because normalize strips it.
const separator = "\x1f"

// CanonicalKey identifies "the same underlying lead" across duplicate rows.
func CanonicalKey(l domain.Lead) string {
	return strings.Join([]string{
		normalize(l.TypeLabel, 0),
		normalize(l.Description, descriptionPrefix),
		normalize(l.ContactName, 0),
		normalize(l.ContactEmail, 0),
	}, separator)
}

// normalize lower-cases and trims s, then keeps the first limit runes when limit > 0.
func normalize(s string, limit int) string {
	s = strings.ReplaceAll(s, separator, "")
	s = strings.TrimSpace(strings.ToLower(s))
	if limit > 0 {
		if r := []rune(s); len(r) > limit {
			s = string(r[:limit])
		}
	}
	return s
}

// Collapse keeps the first lead of every key group, preserving input order.
// Callers sort before collapsing so the first member is the preferred one.
func Collapse(leads []domain.Lead) []domain.Lead {
	seen := make(map[string]struct{}, len(leads))
	out := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		key := CanonicalKey(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
