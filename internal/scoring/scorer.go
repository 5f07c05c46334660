package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spigell/rnd-matcher/internal/eligibility"
)

// Mode selects how the deadline factor treats expired programs.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeHistorical Mode = "historical"
)

// ParseMode accepts the scoring.mode config value. Empty means standard.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStandard:
		return ModeStandard, nil
	case ModeHistorical:
		return ModeHistorical, nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q", s)
	}
}

// Options are passed on every call. Now must be set by the caller; the scorer
// never reads the wall clock.
type Options struct {
	Now  time.Time
	Mode Mode
}

type FactorScore struct {
	Factor Factor  `json:"factor"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	// Applicable is false when the program sets no condition for the factor or
	// the organization data it needs is unknown. The score then is the default
	// credit, not evidence of fit.
	Applicable bool `json:"applicable"`
}

// Ratio is the share of the maximum earned, 0 for factors weighted 0.
func (s FactorScore) Ratio() float64 {
	if s.Max <= 0 {
		return 0
	}
	return s.Score / s.Max
}

// ScoreBreakdown lists every factor in canonical order, zeros included.
type ScoreBreakdown struct {
	WeightsVersion string        `json:"weightsVersion"`
	Mode           Mode          `json:"mode"`
	Factors        []FactorScore `json:"factors"`
	Total          float64       `json:"total"`
}

func (b ScoreBreakdown) Get(f Factor) (FactorScore, bool) {
	for _, s := range b.Factors {
		if s.Factor == f {
			return s, true
		}
	}
	return FactorScore{}, false
}

// Scorer holds validated weights only and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the breakdown of a gated program. A zero Ticket means the
// caller skipped the gate, which is a programming error.
func (s *Scorer) Score(ticket eligibility.Ticket, opts Options) ScoreBreakdown {
	if !ticket.Valid() {
		panic("scoring: ticket was not issued by the eligibility gate")
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeStandard
	}

	in := &input{
		program:     ticket.Program(),
		org:         ticket.Organization(),
		industry:    ticket.Industry(),
		orgIndustry: ticket.OrganizationIndustry(),
		now:         opts.Now,
		mode:        mode,
	}

	breakdown := ScoreBreakdown{
		WeightsVersion: s.weights.Version,
		Mode:           mode,
		Factors:        make([]FactorScore, 0, len(Factors)),
	}

	total := 0.0
	for _, f := range Factors {
		maxScore := s.weights.Max(f)
		fraction, applicable := factorFuncs[f](in)
		score := round1(clamp(fraction, 0, 1) * maxScore)
		breakdown.Factors = append(breakdown.Factors, FactorScore{Factor: f, Score: score, Max: maxScore, Applicable: applicable})
		total += score
	}
	breakdown.Total = clamp(round1(total), 0, 100)

	return breakdown
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
