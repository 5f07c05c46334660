package explain

import (
	"sort"
	"strings"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

const (
	reasonRatio      = 0.7
	cautionRatio     = 0.4
	maxReasons       = 4
	minCompleteness  = 60
	CautionProfile   = "PROFILE_INCOMPLETE"
	CautionLowSignal = "LOW_CLASSIFICATION_CONFIDENCE"
)

type Tier string

const (
	TierStrong      Tier = "STRONGLY_RECOMMENDED"
	TierRecommended Tier = "RECOMMENDED"
	TierConsider    Tier = "CONSIDER"
	TierLow         Tier = "LOW_PRIORITY"
)

// TierFor maps a total score onto a recommendation tier.
func TierFor(total float64) Tier {
	switch {
	case total >= 80:
		return TierStrong
	case total >= 65:
		return TierRecommended
	case total >= 50:
		return TierConsider
	default:
		return TierLow
	}
}

// Item is one rendered line. Code is a factor name or a caution code.
type Item struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type Recommendation struct {
	Tier Tier   `json:"tier"`
	Text string `json:"text"`
}

// Explanation always has a summary and a recommendation. Cautions are only
// present for conditionally eligible matches.
type Explanation struct {
	Summary        string         `json:"summary"`
	Reasons        []Item         `json:"reasons"`
	Cautions       []Item         `json:"cautions,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Match carries the scored data the explanation is built from.
type Match struct {
	Breakdown    scoring.ScoreBreakdown
	Completeness classify.CompletenessResult
	Industry     classify.IndustryResult
}

// Facts is what a renderer needs for the summary line.
type Facts struct {
	ProgramTitle string
	OrgName      string
	Total        float64
	Tier         Tier
	Industry     classify.IndustryResult
}

// Renderer phrases the selected items. The selection itself is fixed.
type Renderer interface {
	Summary(f Facts) string
	Reason(s scoring.FactorScore) string
	Caution(s scoring.FactorScore) string
	Notice(code string, m Match) string
	Recommendation(t Tier) string
}

type Generator struct {
	renderer Renderer
}

// NewGenerator uses the Korean templates when renderer is nil.
func NewGenerator(renderer Renderer) *Generator {
	if renderer == nil {
		renderer = KoreanRenderer{}
	}
	return &Generator{renderer: renderer}
}

// Explain picks the factors worth mentioning and renders them. Reasons are the
// strongest applicable factors at or above 70% of their maximum. Cautions are
// applicable factors that earned something but less than 40%. Credit given by
// default, for conditions the program never set, is never mentioned.
func (g *Generator) Explain(m Match, org *funding.Organization, program *funding.Program) Explanation {
	total := m.Breakdown.Total
	tier := TierFor(total)

	facts := Facts{Total: total, Tier: tier, Industry: m.Industry}
	if program != nil {
		facts.ProgramTitle = strings.TrimSpace(program.Title)
	}
	if org != nil {
		facts.OrgName = strings.TrimSpace(org.Name)
	}

	exp := Explanation{
		Summary: g.renderer.Summary(facts),
		Reasons: []Item{},
		Recommendation: Recommendation{
			Tier: tier,
			Text: g.renderer.Recommendation(tier),
		},
	}

	for _, s := range strongest(m.Breakdown.Factors) {
		exp.Reasons = append(exp.Reasons, Item{Code: string(s.Factor), Text: g.renderer.Reason(s)})
	}

	for _, s := range m.Breakdown.Factors {
		ratio := s.Ratio()
		if s.Applicable && s.Score > 0 && ratio < cautionRatio {
			exp.Cautions = append(exp.Cautions, Item{Code: string(s.Factor), Text: g.renderer.Caution(s)})
		}
	}
	if m.Completeness.Percentage < minCompleteness {
		exp.Cautions = append(exp.Cautions, Item{Code: CautionProfile, Text: g.renderer.Notice(CautionProfile, m)})
	}
	if program != nil && program.ClassificationConfidence == funding.ConfidenceLow {
		exp.Cautions = append(exp.Cautions, Item{Code: CautionLowSignal, Text: g.renderer.Notice(CautionLowSignal, m)})
	}

	return exp
}

func strongest(factors []scoring.FactorScore) []scoring.FactorScore {
	picked := make([]scoring.FactorScore, 0, maxReasons)
	for _, s := range factors {
		if s.Applicable && s.Max > 0 && s.Ratio() >= reasonRatio {
			picked = append(picked, s)
		}
	}
	// Stable keeps canonical factor order between equal scores.
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Score > picked[j].Score
	})
	if len(picked) > maxReasons {
		picked = picked[:maxReasons]
	}
	return picked
}
