package partner

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

var ErrWeightsSum = errors.New("partner factor maxima must sum to 100")

type Factor string

const (
	FactorIndustry   Factor = "industryAdjacency"
	FactorTRL        Factor = "trlGap"
	FactorTechnology Factor = "technologyOverlap"
	FactorScale      Factor = "scaleCompatibility"
)

var Factors = []Factor{FactorIndustry, FactorTRL, FactorTechnology, FactorScale}

func (f Factor) Label() string {
	switch f {
	case FactorIndustry:
		return "산업 인접성"
	case FactorTRL:
		return "기술성숙도 격차"
	case FactorTechnology:
		return "기술 키워드 중첩"
	case FactorScale:
		return "규모 적합성"
	default:
		return string(f)
	}
}

// Weights holds the factor maxima. They must sum to 100.
type Weights struct {
	Industry   float64 `mapstructure:"industry"`
	TRL        float64 `mapstructure:"trl"`
	Technology float64 `mapstructure:"technology"`
	Scale      float64 `mapstructure:"scale"`
}

func DefaultWeights() Weights {
	return Weights{Industry: 30, TRL: 25, Technology: 25, Scale: 20}
}

func (w Weights) Max(f Factor) float64 {
	switch f {
	case FactorIndustry:
		return w.Industry
	case FactorTRL:
		return w.TRL
	case FactorTechnology:
		return w.Technology
	case FactorScale:
		return w.Scale
	default:
		return 0
	}
}

func (w Weights) Validate() error {
	sum := 0.0
	for _, f := range Factors {
		max := w.Max(f)
		if math.IsNaN(max) || math.IsInf(max, 0) || max < 0 {
			return fmt.Errorf("partner weight %s is invalid: %v", f, max)
		}
		sum += max
	}
	if math.Abs(sum-100) > 1e-6 {
		return fmt.Errorf("%w: got %v", ErrWeightsSum, sum)
	}
	return nil
}

type FactorScore struct {
	Factor Factor  `json:"factor"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
}

func (s FactorScore) Ratio() float64 {
	if s.Max <= 0 {
		return 0
	}
	return s.Score / s.Max
}

// Result is the compatibility of a candidate as seen from the requesting
// organization. Calculate(a, b) and Calculate(b, a) may differ.
type Result struct {
	PartnerID   string        `json:"partnerId"`
	Score       float64       `json:"score"`
	Breakdown   []FactorScore `json:"breakdown"`
	Reasons     []string      `json:"reasons"`
	Explanation string        `json:"explanation"`
}

type Calculator struct {
	classifier *classify.IndustryClassifier
	affinity   *classify.AffinityTable
	weights    Weights
}

// New builds a calculator. A nil classifier uses the default taxonomy and a
// nil affinity table only knows identical industries.
func New(classifier *classify.IndustryClassifier, affinity *classify.AffinityTable, weights Weights) (*Calculator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = classify.DefaultIndustryClassifier()
	}
	return &Calculator{classifier: classifier, affinity: affinity, weights: weights}, nil
}

var defaultCalculator = &Calculator{weights: DefaultWeights()}

// Calculate scores b as a consortium partner for a with the default weights.
func Calculate(a, b *funding.Organization) Result {
	return defaultCalculator.Calculate(a, b)
}

func (c *Calculator) Calculate(a, b *funding.Organization) Result {
	if a == nil {
		a = &funding.Organization{}
	}
	if b == nil {
		b = &funding.Organization{}
	}
	classifier := c.classifier
	if classifier == nil {
		classifier = classify.DefaultIndustryClassifier()
	}

	fractions := map[Factor]float64{
		FactorIndustry:   industryAdjacency(classifier, c.affinity, a, b),
		FactorTRL:        trlGap(a, b),
		FactorTechnology: technologyOverlap(a, b),
		FactorScale:      scaleCompatibility(a, b),
	}

	res := Result{PartnerID: b.ID, Breakdown: make([]FactorScore, 0, len(Factors)), Reasons: []string{}}
	total := 0.0
	for _, f := range Factors {
		max := c.weights.Max(f)
		s := FactorScore{Factor: f, Score: round1(clamp01(fractions[f]) * max), Max: max}
		res.Breakdown = append(res.Breakdown, s)
		total += s.Score
		if s.Max > 0 && s.Ratio() >= 0.7 {
			res.Reasons = append(res.Reasons, reasonTexts[f])
		}
	}
	res.Score = math.Min(100, math.Max(0, round1(total)))
	res.Explanation = explanation(b, res.Score)
	return res
}

// Rank scores every candidate against a and returns the best limit results,
// highest score first. Candidates with a's id are skipped. A limit of zero or
// less keeps everything.
func (c *Calculator) Rank(a *funding.Organization, candidates []*funding.Organization, limit int) []Result {
	results := make([]Result, 0, len(candidates))
	for _, b := range candidates {
		if b == nil || (a != nil && a.ID != "" && b.ID == a.ID) {
			continue
		}
		results = append(results, c.Calculate(a, b))
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PartnerID < results[j].PartnerID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func Rank(a *funding.Organization, candidates []*funding.Organization, limit int) []Result {
	return defaultCalculator.Rank(a, candidates, limit)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
