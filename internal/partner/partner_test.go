package partner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

func trl(v int) *int { return &v }

func startup() *funding.Organization {
	return &funding.Organization{
		ID:                       "startup",
		Name:                     "에이아이랩",
		Type:                     funding.OrgCompany,
		CompanyScaleType:         funding.ScaleStartup,
		IndustrySector:           "ICT",
		TechnologyReadinessLevel: trl(4),
		KeyTechnologies:          []string{"AI", "데이터분석"},
	}
}

func institute() *funding.Organization {
	return &funding.Organization{
		ID:                       "etri",
		Name:                     "전자통신연구원",
		Type:                     funding.OrgResearchInstitute,
		IndustrySector:           "정보통신",
		TechnologyReadinessLevel: trl(6),
		KeyTechnologies:          []string{"AI", "반도체"},
		ResearchFocusAreas:       []string{"데이터분석", "로봇"},
	}
}

func pharma() *funding.Organization {
	return &funding.Organization{
		ID:                       "pharma",
		Type:                     funding.OrgCompany,
		CompanyScaleType:         funding.ScaleLargeEnterprise,
		IndustrySector:           "바이오",
		TechnologyReadinessLevel: trl(9),
		KeyTechnologies:          []string{"신약"},
	}
}

func scores(r Result) map[Factor]float64 {
	out := make(map[Factor]float64, len(r.Breakdown))
	for _, s := range r.Breakdown {
		out[s.Factor] = s.Score
	}
	return out
}

func TestCalculateIsAsymmetric(t *testing.T) {
	ab := Calculate(startup(), institute())
	assert.Equal(t, "etri", ab.PartnerID)
	assert.Equal(t, map[Factor]float64{
		FactorIndustry:   30,
		FactorTRL:        25,
		FactorTechnology: 25,
		FactorScale:      20,
	}, scores(ab))
	assert.Equal(t, 100.0, ab.Score)
	assert.Len(t, ab.Reasons, 4)
	assert.Contains(t, ab.Explanation, "전자통신연구원")

	ba := Calculate(institute(), startup())
	assert.Equal(t, map[Factor]float64{
		FactorIndustry:   30,
		FactorTRL:        12.5,
		FactorTechnology: 12.5,
		FactorScale:      16,
	}, scores(ba))
	assert.Equal(t, 71.0, ba.Score)
	assert.NotEqual(t, ab.Score, ba.Score)
	assert.Equal(t, []string{reasonTexts[FactorIndustry], reasonTexts[FactorScale]}, ba.Reasons)
}

func TestCalculateBreakdownOrderAndMaxima(t *testing.T) {
	r := Calculate(startup(), pharma())
	require.Len(t, r.Breakdown, len(Factors))
	w := DefaultWeights()
	sum := 0.0
	for i, s := range r.Breakdown {
		assert.Equal(t, Factors[i], s.Factor)
		assert.Equal(t, w.Max(s.Factor), s.Max)
		assert.LessOrEqual(t, s.Score, s.Max)
		sum += s.Score
	}
	assert.InDelta(t, sum, r.Score, 1e-9)
	// Different industries, partner far ahead in TRL, no shared technology,
	// larger company partner.
	assert.Equal(t, 30.0, r.Score)
}

func TestCalculateMissingDataIsNeutral(t *testing.T) {
	r := Calculate(nil, nil)
	assert.Equal(t, map[Factor]float64{
		FactorIndustry:   15,
		FactorTRL:        12.5,
		FactorTechnology: 12.5,
		FactorScale:      10,
	}, scores(r))
	assert.Equal(t, 50.0, r.Score)
	assert.Empty(t, r.Reasons)
	assert.NotNil(t, r.Reasons)
	assert.Contains(t, r.Explanation, "후보 기관")
}

func TestCalculatorUsesAffinityTable(t *testing.T) {
	table, err := classify.NewAffinityTable([]classify.AffinityEntry{
		{From: classify.IndustryICT, To: classify.IndustryBioHealth, Score: 0.6},
	})
	require.NoError(t, err)
	calc, err := New(nil, table, DefaultWeights())
	require.NoError(t, err)

	r := calc.Calculate(startup(), pharma())
	assert.Equal(t, 18.0, scores(r)[FactorIndustry])
	assert.Equal(t, 48.0, r.Score)
	assert.Equal(t, scores(r)[FactorIndustry], scores(calc.Calculate(pharma(), startup()))[FactorIndustry])
}

func TestTRLGap(t *testing.T) {
	cases := []struct {
		a, b int
		want float64
	}{
		{4, 5, 1},
		{4, 7, 1},
		{4, 4, 0.7},
		{4, 2, 0.5},
		{4, 9, 0.4},
		{8, 1, 0.2},
	}
	for _, tc := range cases {
		a := &funding.Organization{TechnologyReadinessLevel: trl(tc.a)}
		b := &funding.Organization{TechnologyReadinessLevel: trl(tc.b)}
		assert.Equal(t, tc.want, trlGap(a, b), "%d -> %d", tc.a, tc.b)
	}
	assert.Equal(t, neutral, trlGap(&funding.Organization{TechnologyReadinessLevel: trl(12)}, institute()))
}

func TestScaleCompatibility(t *testing.T) {
	company := func(scale funding.CompanyScale) *funding.Organization {
		return &funding.Organization{Type: funding.OrgCompany, CompanyScaleType: scale}
	}
	university := &funding.Organization{Type: funding.OrgUniversity}

	assert.Equal(t, 1.0, scaleCompatibility(company(funding.ScaleSME), university))
	assert.Equal(t, 0.8, scaleCompatibility(university, company(funding.ScaleSME)))
	assert.Equal(t, 0.6, scaleCompatibility(university, institute()))
	assert.Equal(t, 1.0, scaleCompatibility(company(funding.ScaleSME), company(funding.ScaleMidSized)))
	assert.Equal(t, 0.6, scaleCompatibility(company(funding.ScaleSME), company(funding.ScaleSME)))
	assert.Equal(t, 0.4, scaleCompatibility(company(funding.ScaleMidSized), company(funding.ScaleSME)))
	assert.Equal(t, neutral, scaleCompatibility(company(""), company(funding.ScaleSME)))
	assert.Equal(t, neutral, scaleCompatibility(&funding.Organization{}, university))
}

func TestRank(t *testing.T) {
	a := startup()
	candidates := []*funding.Organization{pharma(), nil, startup(), institute()}

	ranked := Rank(a, candidates, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, "etri", ranked[0].PartnerID)
	assert.Equal(t, "pharma", ranked[1].PartnerID)

	top := Rank(a, candidates, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "etri", top[0].PartnerID)
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.Scale = 10
	assert.True(t, errors.Is(w.Validate(), ErrWeightsSum))

	w = DefaultWeights()
	w.TRL = -5
	w.Scale = 50
	assert.Error(t, w.Validate())

	_, err := New(nil, nil, Weights{})
	assert.Error(t, err)
}
