package plans

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"leadledger_backend/internal/wallet"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	pro, ok := c.Plan("professional")
	if !ok {
		t.Fatal("expected professional plan")
	}
	for _, kind := range wallet.AddOnKinds {
		if !pro.Allows(kind) {
			t.Fatalf("professional should allow %s", kind)
		}
	}

	starter, _ := c.Plan("starter")
	if !starter.Allows(wallet.AddOnStayActive) || starter.Allows(wallet.AddOnBoostPack) {
		t.Fatalf("unexpected starter add-ons: %+v", starter.AddOns)
	}

	if g := c.GrantFor(wallet.AddOnBoostPack); g.Credits != 100 || g.Seats != 1 {
		t.Fatalf("unexpected boost pack grant: %+v", g)
	}
	if g := c.GrantFor(wallet.AddOnStayActive); g.Credits != 30 {
		t.Fatalf("unexpected stay active grant: %+v", g)
	}
	if g := c.GrantFor(wallet.AddOnBonus); g.Credits != 50 {
		t.Fatalf("unexpected bonus grant: %+v", g)
	}

	for i := 1; i < len(c.Plans); i++ {
		if c.Plans[i-1].TierLevel > c.Plans[i].TierLevel {
			t.Fatal("plans must be sorted by tier")
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":         "plans: []",
		"no slug":       "plans:\n  - name: X\n",
		"duplicate":     "plans:\n  - slug: a\n  - slug: a\n",
		"trial days":    "plans:\n  - slug: a\n    trial_credits: 5\n",
		"seat on bonus": "plans:\n  - slug: a\naddon_grants:\n  bonus:\n    credits: 5\n    seats: 1\n",
		"unknown addon": "plans:\n  - slug: a\naddon_grants:\n  mystery:\n    credits: 5\n",
		"bad yaml":      "plans: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yaml")
	raw := "plans:\n  - slug: solo\n    name: Solo\n    monthly_credits: 40\n    addons:\n      bonus: true\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := c.Plan("solo")
	if !ok || p.MonthlyCredits != 40 || !p.Allows(wallet.AddOnBonus) || p.Allows(wallet.AddOnStayActive) {
		t.Fatalf("unexpected plan: %+v", p)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTrialTerms(t *testing.T) {
	c := Default()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	starter, _ := c.Plan("starter")
	if !starter.HasTrial() {
		t.Fatal("starter should offer a trial")
	}
	if got := starter.TrialEnd(start); !got.Equal(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected trial end %v", got)
	}

	enterprise, _ := c.Plan("enterprise")
	if enterprise.HasTrial() {
		t.Fatal("enterprise has no trial")
	}
}
