package scoring

import (
	"math"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestScoreCeilingExample(t *testing.T) {
	calc := New()
	in := Input{
		EstimatedValue: strPtr("$120,000"),
		StageStatus:    strPtr("Issued"),
		HasPhone:       true,
		Description:    strings.Repeat("a", 400),
		Address:        "1234 Main Street, Springfield, IL 62704",
		HasDocuments:   true,
	}
	if got := calc.Score(in); got != MaxScore {
		t.Fatalf("expected ceiling score %d, got %d (%+v)", MaxScore, got, calc.Breakdown(in))
	}
}

func TestScoreFloorExample(t *testing.T) {
	calc := New()
	in := Input{StageStatus: strPtr("something nobody recognises")}
	if got := calc.Score(in); got != MinScore {
		t.Fatalf("expected floor score %d, got %d", MinScore, got)
	}
	if got := calc.Score(Input{}); got != MinScore {
		t.Fatalf("expected floor score for empty input, got %d", got)
	}
}

func TestScoreMidRangeExample(t *testing.T) {
	calc := New()
	in := Input{
		EstimatedValue: strPtr("$8,000"),
		StageStatus:    strPtr("In Review"),
		HasEmail:       true,
		Description:    strings.Repeat("b", 60),
		Address:        "12 Oak St",
	}
	res := calc.Breakdown(in)
	if res.Value != 45 || res.Stage != 60 || res.Contact != 50 || res.Description != 60 || res.Address != 67 {
		t.Fatalf("unexpected sub-scores: %+v", res)
	}
	if res.Modifiers != 0 {
		t.Fatalf("expected no modifiers, got %d", res.Modifiers)
	}
	if res.Score != 16 {
		t.Fatalf("expected score 16, got %d", res.Score)
	}
}

func TestRescaleBoundaries(t *testing.T) {
	cases := map[float64]float64{
		-15: 10,
		0:   10,
		15:  11,
		30:  12,
		40:  13.5,
		50:  15,
		70:  18,
		85:  19,
		100: 20,
		130: 20,
	}
	for in, want := range cases {
		if got := rescale(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("rescale(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestValueScoreBuckets(t *testing.T) {
	cases := []struct {
		raw  *string
		want float64
	}{
		{nil, 50},
		{strPtr(""), 50},
		{strPtr("about ten grand"), 50},
		{strPtr("10000-20000"), 50},
		{strPtr("-500"), 50},
		{strPtr("999"), 20},
		{strPtr("$1,000"), 28},
		{strPtr("4999.99"), 36},
		{strPtr("9,999 USD"), 45},
		{strPtr("19999"), 55},
		{strPtr("34999"), 64},
		{strPtr("49999"), 72},
		{strPtr("74999"), 80},
		{strPtr("99999"), 88},
		{strPtr("100000"), 95},
		{strPtr("$2,500,000"), 95},
	}
	for _, tc := range cases {
		parsed, amount := parseMoney(tc.raw)
		if got := valueScore(parsed, amount); got != tc.want {
			label := "<nil>"
			if tc.raw != nil {
				label = *tc.raw
			}
			t.Fatalf("valueScore(%q) = %v, want %v", label, got, tc.want)
		}
	}
}

func TestValueBucketsAreMonotonic(t *testing.T) {
	prev := 0.0
	for _, b := range valueBuckets {
		if b.score <= prev {
			t.Fatalf("bucket below %s is not increasing", b.below)
		}
		prev = b.score
	}
	if topValueScore <= prev {
		t.Fatalf("top bucket must exceed the last threshold bucket")
	}
}

func TestStageScore(t *testing.T) {
	cases := map[string]float64{
		"Concept Review":      30,
		"PRE-APPLICATION":     30,
		"Applied":             60,
		"In Review":           60,
		"Ready to Issue":      60,
		"Issued":              90,
		"Under Construction":  90,
		"Closed":              10,
		"Expired":             10,
		"Issued - Finaled":    10,
		"Something different": 50,
		"   ":                 50,
	}
	for text, want := range cases {
		text := text
		_, got := stageScore(&text)
		if got != want {
			t.Fatalf("stageScore(%q) = %v, want %v", text, got, want)
		}
	}
	if _, got := stageScore(nil); got != 50 {
		t.Fatalf("nil stage should be neutral, got %v", got)
	}
}

func TestDescriptionScore(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 20}, {5, 30}, {19, 30}, {20, 45}, {49, 45}, {50, 60},
		{99, 60}, {100, 75}, {199, 75}, {200, 85}, {349, 85}, {350, 95},
	}
	for _, tc := range cases {
		desc := "  " + strings.Repeat("x", tc.n) + "  "
		if got := descriptionScore(desc); got != tc.want {
			t.Fatalf("descriptionScore(len=%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestAddressScore(t *testing.T) {
	cases := map[string]float64{
		"":                       0,
		"   ":                    0,
		"somewhere rural":        40,
		"12 somewhere":           52,
		"Main Street":            55,
		"Springfield, IL":        50,
		"Springfield, IL, 62704": 73,
		"1234 Main Street, Springfield, IL 62704": 100,
	}
	for addr, want := range cases {
		if got := addressScore(addr); got != want {
			t.Fatalf("addressScore(%q) = %v, want %v", addr, got, want)
		}
	}
}

func scoringGrid() []Input {
	values := []*string{nil, strPtr("garbled$$"), strPtr("500"), strPtr("12000"), strPtr("60000"), strPtr("250000")}
	stages := []*string{nil, strPtr("concept"), strPtr("applied"), strPtr("issued"), strPtr("closed"), strPtr("odd")}
	descs := []string{"", "short", strings.Repeat("d", 120), strings.Repeat("d", 500)}
	addrs := []string{"", "rural", "12 Oak St", "1234 Main Street, Springfield, IL 62704, Suite 5 Building B Floor 2 Unit 14 Door 3"}
	contacts := [][2]bool{{false, false}, {false, true}, {true, false}, {true, true}}

	var grid []Input
	for _, v := range values {
		for _, s := range stages {
			for _, d := range descs {
				for _, a := range addrs {
					for _, c := range contacts {
						grid = append(grid, Input{
							EstimatedValue: v,
							StageStatus:    s,
							HasPhone:       c[0],
							HasEmail:       c[1],
							Description:    d,
							Address:        a,
						})
					}
				}
			}
		}
	}
	return grid
}

func TestScoreRangeAndDeterminism(t *testing.T) {
	calc := New()
	for _, in := range scoringGrid() {
		for _, docs := range []bool{false, true} {
			in.HasDocuments = docs
			first := calc.Score(in)
			if first < MinScore || first > MaxScore {
				t.Fatalf("score %d out of range for %+v", first, in)
			}
			if again := calc.Score(in); again != first {
				t.Fatalf("score not deterministic: %d then %d", first, again)
			}
		}
	}
}

func TestDocumentsNeverLowerTheScore(t *testing.T) {
	calc := New()
	for _, in := range scoringGrid() {
		in.HasDocuments = false
		without := calc.Score(in)
		in.HasDocuments = true
		with := calc.Score(in)
		if with < without {
			t.Fatalf("documents lowered score from %d to %d for %+v", without, with, in)
		}
	}
}

func TestModifiersStack(t *testing.T) {
	r := Result{Value: 95, Stage: 90, Contact: 80, Description: 95, Address: 100}
	if got := modifiers(r, 85, true); got != 8+5+4+3+3+2 {
		t.Fatalf("expected all positive modifiers to stack, got %d", got)
	}

	r = Result{Value: 20, Stage: 30, Contact: 10, Description: 30, Address: 40}
	if got := modifiers(r, 5, false); got != -4-3-2-1 {
		t.Fatalf("expected all negative modifiers to stack, got %d", got)
	}
}
