// Package plans loads the subscription tier catalog: monthly allotments,
// trial terms and which add-ons each tier may redeem.
package plans

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"leadledger_backend/internal/wallet"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type AddOnGrant struct {
	Credits int `yaml:"credits" json:"credits"`
	Seats   int `yaml:"seats" json:"seats"`
}

type AddOnFlags struct {
	StayActive bool `yaml:"stay_active" json:"stayActive"`
	Bonus      bool `yaml:"bonus" json:"bonus"`
	BoostPack  bool `yaml:"boost_pack" json:"boostPack"`
}

type Plan struct {
	Slug           string     `yaml:"slug" json:"slug"`
	Name           string     `yaml:"name" json:"name"`
	TierLevel      int        `yaml:"tier_level" json:"tierLevel"`
	MonthlyCredits int        `yaml:"monthly_credits" json:"monthlyCredits"`
	MaxSeats       int        `yaml:"max_seats" json:"maxSeats"`
	TrialCredits   int        `yaml:"trial_credits" json:"trialCredits"`
	TrialDays      int        `yaml:"trial_days" json:"trialDays"`
	AddOns         AddOnFlags `yaml:"addons" json:"addOns"`
}

// Allows reports whether the tier may redeem kind.
func (p Plan) Allows(kind wallet.AddOnKind) bool {
	switch kind {
	case wallet.AddOnStayActive:
		return p.AddOns.StayActive
	case wallet.AddOnBonus:
		return p.AddOns.Bonus
	case wallet.AddOnBoostPack:
		return p.AddOns.BoostPack
	}
	return false
}

type Catalog struct {
	Plans       []Plan                          `yaml:"plans"`
	AddOnGrants map[wallet.AddOnKind]AddOnGrant `yaml:"addon_grants"`

	bySlug map[string]Plan
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded plan catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("plans: catalog is empty")
	}
	c.bySlug = make(map[string]Plan, len(c.Plans))
	for _, p := range c.Plans {
		if p.Slug == "" {
			return fmt.Errorf("plans: plan %q has no slug", p.Name)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return fmt.Errorf("plans: duplicate slug %q", p.Slug)
		}
		if p.MonthlyCredits < 0 || p.TrialCredits < 0 || p.TrialDays < 0 {
			return fmt.Errorf("plans: %q has negative amounts", p.Slug)
		}
		if p.TrialCredits > 0 && p.TrialDays == 0 {
			return fmt.Errorf("plans: %q grants trial credits without trial days", p.Slug)
		}
		c.bySlug[p.Slug] = p
	}
	for kind, g := range c.AddOnGrants {
		if !kind.Valid() {
			return fmt.Errorf("plans: unknown add-on %q", kind)
		}
		if g.Credits < 0 || g.Seats < 0 {
			return fmt.Errorf("plans: add-on %q has negative grant", kind)
		}
		if g.Seats > 0 && kind != wallet.AddOnBoostPack {
			return fmt.Errorf("plans: add-on %q cannot grant seats", kind)
		}
	}
	sort.SliceStable(c.Plans, func(i, j int) bool { return c.Plans[i].TierLevel < c.Plans[j].TierLevel })
	return nil
}

// Plan looks up a plan by slug.
func (c *Catalog) Plan(slug string) (Plan, bool) {
	p, ok := c.bySlug[slug]
	return p, ok
}

// GrantFor returns the default earn size for kind.
func (c *Catalog) GrantFor(kind wallet.AddOnKind) AddOnGrant {
	return c.AddOnGrants[kind]
}

// TrialEnd returns when a trial started at start under p closes.
func (p Plan) TrialEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, p.TrialDays)
}

// HasTrial reports whether the tier offers trial credits.
func (p Plan) HasTrial() bool {
	return p.TrialCredits > 0 && p.TrialDays > 0
}
