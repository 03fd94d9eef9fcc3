// Package scoring computes the relevance score stamped on every lead at intake.
// The score doubles as the credit price of unlocking the lead.
package scoring

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"leadledger_backend/internal/leads/domain"

	"github.com/shopspring/decimal"
)

const (
	// ScoreVersion tags stored scores. Bump it when the model changes so
	// rescoring jobs can find stale rows.
	ScoreVersion = "trs-v1"

	MinScore = 10
	MaxScore = 20

	neutralSubScore = 50.0
)

const (
	weightValue       = 0.30
	weightStage       = 0.25
	weightContact     = 0.20
	weightDescription = 0.15
	weightAddress     = 0.10
)

// Input holds the raw attributes the score is derived from.
type Input struct {
	EstimatedValue *string
	StageStatus    *string
	HasPhone       bool
	HasEmail       bool
	Description    string
	Address        string
	HasDocuments   bool
}

// InputFromLead extracts the scoring attributes of a lead.
func InputFromLead(l domain.Lead) Input {
	return Input{
		EstimatedValue: l.EstimatedValue,
		StageStatus:    l.StageStatus,
		HasPhone:       l.HasPhone(),
		HasEmail:       l.HasEmail(),
		Description:    l.Description,
		Address:        l.Address,
		HasDocuments:   l.HasDocuments,
	}
}

// Result is the full breakdown behind a score, used by admin diagnostics.
type Result struct {
	Score       int     `json:"score"`
	Value       float64 `json:"value"`
	Stage       float64 `json:"stage"`
	Contact     float64 `json:"contact"`
	Description float64 `json:"description"`
	Address     float64 `json:"address"`
	Weighted    float64 `json:"weighted"`
	Modifiers   int     `json:"modifiers"`
	Raw         float64 `json:"raw"`
	Version     string  `json:"version"`
}

// Calculator is stateless; the zero value is ready to use.
type Calculator struct{}

// New returns a Calculator.
func New() *Calculator {
	return &Calculator{}
}

// Score returns the relevance score in [MinScore, MaxScore].
func (c *Calculator) Score(in Input) int {
	return c.Breakdown(in).Score
}

// Breakdown computes the score together with every intermediate value.
func (c *Calculator) Breakdown(in Input) Result {
	valueParsed, amount := parseMoney(in.EstimatedValue)
	stageMatched, stage := stageScore(in.StageStatus)

	r := Result{
		Value:       valueScore(valueParsed, amount),
		Stage:       stage,
		Contact:     contactScore(in.HasPhone, in.HasEmail),
		Description: descriptionScore(in.Description),
		Address:     addressScore(in.Address),
		Version:     ScoreVersion,
	}

	r.Weighted = weightValue*r.Value +
		weightStage*r.Stage +
		weightContact*r.Contact +
		weightDescription*r.Description +
		weightAddress*r.Address
	r.Modifiers = modifiers(r, addressLength(in.Address), in.HasDocuments)
	r.Raw = r.Weighted + float64(r.Modifiers)

	if isSignalFree(in, valueParsed, stageMatched) {
		r.Score = MinScore
		return r
	}

	r.Score = clampScore(rescale(r.Raw))
	return r
}

// isSignalFree is true when nothing about the lead can be acted on: no
// parseable value, no recognised stage, no contact channel, no description,
// no address and no documents. Such leads sit at the floor.
func isSignalFree(in Input, valueParsed, stageMatched bool) bool {
	return !valueParsed &&
		!stageMatched &&
		!in.HasPhone &&
		!in.HasEmail &&
		strings.TrimSpace(in.Description) == "" &&
		strings.TrimSpace(in.Address) == "" &&
		!in.HasDocuments
}

var moneyReplacer = strings.NewReplacer("$", "", ",", "", "USD", "", "usd", "", " ", "", "\t", "")

// parseMoney reads a plain amount such as "$120,000" or "4500.50 USD".
// Ranges, words and negative amounts are treated as unparseable.
func parseMoney(raw *string) (bool, decimal.Decimal) {
	if raw == nil {
		return false, decimal.Zero
	}
	cleaned := moneyReplacer.Replace(strings.TrimSpace(*raw))
	if cleaned == "" {
		return false, decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil || amount.IsNegative() {
		return false, decimal.Zero
	}
	return true, amount
}

type valueBucket struct {
	below decimal.Decimal
	score float64
}

var valueBuckets = []valueBucket{
	{decimal.NewFromInt(1_000), 20},
	{decimal.NewFromInt(2_500), 28},
	{decimal.NewFromInt(5_000), 36},
	{decimal.NewFromInt(10_000), 45},
	{decimal.NewFromInt(20_000), 55},
	{decimal.NewFromInt(35_000), 64},
	{decimal.NewFromInt(50_000), 72},
	{decimal.NewFromInt(75_000), 80},
	{decimal.NewFromInt(100_000), 88},
}

const topValueScore = 95.0

func valueScore(parsed bool, amount decimal.Decimal) float64 {
	if !parsed {
		return neutralSubScore
	}
	for _, b := range valueBuckets {
		if amount.LessThan(b.below) {
			return b.score
		}
	}
	return topValueScore
}

type stageGroup struct {
	score    float64
	keywords []string
}

// stageGroups are matched in order; terminal wording wins over everything
// else so "Issued - Finaled" counts as finished work.
var stageGroups = []stageGroup{
	{10, []string{"closed", "expired", "finaled", "final", "cancel", "withdrawn", "void", "revoked"}},
	{30, []string{"concept", "pre-application", "pre-app", "preapplication", "proposed", "pre-submittal"}},
	{60, []string{"applied", "application", "in review", "under review", "submitted", "ready to issue", "plan check", "pending", "intake"}},
	{90, []string{"issued", "under construction", "construction", "permitted", "inspection"}},
}

func stageScore(raw *string) (bool, float64) {
	if raw == nil {
		return false, neutralSubScore
	}
	text := strings.ToLower(strings.TrimSpace(*raw))
	if text == "" {
		return false, neutralSubScore
	}
	for _, g := range stageGroups {
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				return true, g.score
			}
		}
	}
	return false, neutralSubScore
}

func contactScore(hasPhone, hasEmail bool) float64 {
	switch {
	case hasPhone:
		return 80
	case hasEmail:
		return 50
	default:
		return 10
	}
}

func descriptionScore(description string) float64 {
	n := len([]rune(strings.TrimSpace(description)))
	switch {
	case n == 0:
		return 20
	case n < 20:
		return 30
	case n < 50:
		return 45
	case n < 100:
		return 60
	case n < 200:
		return 75
	case n < 350:
		return 85
	default:
		return 95
	}
}

var streetSuffixes = map[string]struct{}{
	"st": {}, "street": {}, "ave": {}, "av": {}, "avenue": {}, "rd": {}, "road": {},
	"blvd": {}, "boulevard": {}, "dr": {}, "drive": {}, "ln": {}, "lane": {},
	"way": {}, "ct": {}, "court": {}, "pl": {}, "place": {}, "ter": {}, "terrace": {},
	"pkwy": {}, "parkway": {}, "hwy": {}, "highway": {}, "cir": {}, "circle": {},
	"trl": {}, "trail": {}, "sq": {}, "square": {}, "loop": {}, "pike": {},
}

var zipToken = regexp.MustCompile(`(^|[^0-9])[0-9]{5}([^0-9]|$)`)

func addressScore(address string) float64 {
	text := strings.TrimSpace(address)
	if text == "" {
		return 0
	}

	score := 40.0

	head := []rune(text)
	if len(head) > 10 {
		head = head[:10]
	}
	for _, r := range head {
		if unicode.IsDigit(r) {
			score += 12
			break
		}
	}

	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := streetSuffixes[token]; ok {
			score += 15
			break
		}
	}

	if zipToken.MatchString(text) {
		score += 18
	}

	switch commas := strings.Count(text, ","); {
	case commas >= 2:
		score += 15
	case commas == 1:
		score += 10
	}

	return math.Min(score, 100)
}

func addressLength(address string) int {
	return len([]rune(strings.TrimSpace(address)))
}

func modifiers(r Result, addrLen int, hasDocuments bool) int {
	total := 0
	if hasDocuments {
		total += 8
	}
	if r.Value >= 80 && r.Contact >= 80 {
		total += 5
	}
	if r.Description >= 70 && r.Address >= 70 && r.Contact >= 50 {
		total += 4
	}
	if r.Stage >= 90 && r.Value >= 70 {
		total += 3
	}
	if r.Description >= 75 && r.Value >= 65 {
		total += 3
	}
	if addrLen >= 80 && r.Address >= 70 {
		total += 2
	}
	if addrLen >= 50 && addrLen < 80 && r.Value >= 40 {
		total++
	}
	if r.Contact <= 10 {
		total -= 4
	}
	if r.Value <= 35 && r.Description <= 40 {
		total -= 3
	}
	if r.Stage <= 30 && (r.Description <= 45 || r.Address <= 40) {
		total -= 2
	}
	if addrLen < 20 && r.Address < 50 {
		total--
	}
	return total
}

type breakpoint struct {
	in, out float64
}

var rescalePoints = []breakpoint{
	{0, 10},
	{30, 12},
	{50, 15},
	{70, 18},
	{100, 20},
}

// rescale maps the 0-100 raw value onto the published range by linear
// interpolation between rescalePoints.
func rescale(raw float64) float64 {
	first, last := rescalePoints[0], rescalePoints[len(rescalePoints)-1]
	if raw <= first.in {
		return first.out
	}
	if raw >= last.in {
		return last.out
	}
	for i := 1; i < len(rescalePoints); i++ {
		lo, hi := rescalePoints[i-1], rescalePoints[i]
		if raw <= hi.in {
			return lo.out + (raw-lo.in)*(hi.out-lo.out)/(hi.in-lo.in)
		}
	}
	return last.out
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < MinScore {
		return MinScore
	}
	if rounded > MaxScore {
		return MaxScore
	}
	return rounded
}
