package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/eligibility"
	"github.com/spigell/rnd-matcher/internal/funding"
)

var now = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func daysFromNow(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func exampleOrg() *funding.Organization {
	return &funding.Organization{
		ID:                       "org-1",
		Type:                     funding.OrgCompany,
		IndustrySector:           "ICT",
		TechnologyReadinessLevel: intPtr(5),
		KeyTechnologies:          []string{"AI", "데이터분석"},
	}
}

func exampleProgram() *funding.Program {
	return &funding.Program{
		ID:           "p-1",
		Title:        "AI 인공지능 기술개발 사업",
		TargetType:   []funding.OrganizationType{funding.OrgCompany},
		Deadline:     daysFromNow(30),
		BudgetAmount: int64Ptr(100_000_000),
	}
}

func ticketFor(t *testing.T, p *funding.Program, o *funding.Organization) eligibility.Ticket {
	t.Helper()
	gate, err := eligibility.New(classify.DefaultIndustryClassifier(), eligibility.DefaultConfig())
	require.NoError(t, err)
	result := gate.Evaluate(p, o)
	require.True(t, result.Passed, "gate blocked: %v", result.BlockReasons)
	ticket, ok := result.Ticket()
	require.True(t, ok)
	return ticket
}

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)
	return s
}

func factor(t *testing.T, b ScoreBreakdown, f Factor) float64 {
	t.Helper()
	s, ok := b.Get(f)
	require.True(t, ok, "factor %s missing", f)
	return s.Score
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
	assert.InDelta(t, 100, w.Sum(), 1e-9)
	assert.Equal(t, "v1", w.Version)
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w.Industry = 30
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWeightsSum))

	w = DefaultWeights()
	w.Region = -6
	w.Industry = 37
	require.Error(t, w.Validate())

	w = DefaultWeights()
	w.Version = " "
	require.Error(t, w.Validate())

	_, err = NewScorer(Weights{Version: "empty"})
	assert.ErrorIs(t, err, ErrWeightsSum)
}

func TestExampleScenario(t *testing.T) {
	b := newScorer(t).Score(ticketFor(t, exampleProgram(), exampleOrg()), Options{Now: now})

	require.Len(t, b.Factors, len(Factors))
	for i, f := range Factors {
		assert.Equal(t, f, b.Factors[i].Factor)
	}

	assert.InDelta(t, 17.5, factor(t, b, FactorIndustry), 1e-9)
	assert.InDelta(t, 5.8, factor(t, b, FactorDeadline), 1e-9)
	assert.InDelta(t, 4, factor(t, b, FactorFinancial), 1e-9)
	assert.InDelta(t, 3.5, factor(t, b, FactorSupportType), 1e-9)
	assert.InDelta(t, 82.8, b.Total, 1e-9)
	assert.Equal(t, "v1", b.WeightsVersion)
	assert.Equal(t, ModeStandard, b.Mode)
}

func TestScoreIsIdempotent(t *testing.T) {
	s := newScorer(t)
	ticket := ticketFor(t, exampleProgram(), exampleOrg())

	first := s.Score(ticket, Options{Now: now})
	second := s.Score(ticket, Options{Now: now})
	assert.Equal(t, first, second)
}

func TestScorePanicsWithoutTicket(t *testing.T) {
	s := newScorer(t)
	assert.Panics(t, func() { s.Score(eligibility.Ticket{}, Options{Now: now}) })
}

func TestTotalIsSumOfFactors(t *testing.T) {
	s := newScorer(t)
	programs := []*funding.Program{
		exampleProgram(),
		{ID: "p-2", Title: "스마트팜 실증", BudgetAmount: int64Ptr(1), TargetCompanyScales: []funding.CompanyScale{funding.ScaleLargeEnterprise}},
		{ID: "p-3", Title: "지역 혁신", Deadline: daysFromNow(-5), Regions: []string{"부산"}, RequiredCertifications: []string{"이노비즈"}},
	}
	for _, p := range programs {
		b := s.Score(ticketFor(t, p, exampleOrg()), Options{Now: now})
		sum := 0.0
		for _, fs := range b.Factors {
			assert.GreaterOrEqual(t, fs.Score, 0.0)
			assert.LessOrEqual(t, fs.Score, fs.Max)
			sum += fs.Score
		}
		assert.InDelta(t, sum, b.Total, 1e-6, p.ID)
		assert.GreaterOrEqual(t, b.Total, 0.0)
		assert.LessOrEqual(t, b.Total, 100.0)
	}
}

func TestDeadlineUrgency(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		name     string
		deadline *time.Time
		mode     Mode
		want     float64
	}{
		{name: "due soon", deadline: daysFromNow(3), want: 8},
		{name: "a month out", deadline: daysFromNow(30), want: 5.8},
		{name: "far future", deadline: daysFromNow(120), want: 0},
		{name: "no deadline", want: 0},
		{name: "expired", deadline: daysFromNow(-10), want: 0},
		{name: "expired historical", deadline: daysFromNow(-10), mode: ModeHistorical, want: 8},
		{name: "long expired historical", deadline: daysFromNow(-400), mode: ModeHistorical, want: 0},
		{name: "future historical", deadline: daysFromNow(3), mode: ModeHistorical, want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := exampleProgram()
			p.Deadline = tt.deadline
			b := s.Score(ticketFor(t, p, exampleOrg()), Options{Now: now, Mode: tt.mode})
			assert.InDelta(t, tt.want, factor(t, b, FactorDeadline), 1e-9)
		})
	}
}

func TestCertifications(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		name      string
		required  []string
		preferred []string
		held      []string
		want      float64
	}{
		{name: "none asked", want: 8},
		{name: "half of required", required: []string{"벤처기업", "기업부설연구소"}, held: []string{"벤처기업 인증"}, want: 4},
		{name: "required and preferred", required: []string{"벤처기업"}, preferred: []string{"ISO 9001"}, held: []string{"벤처기업", "iso9001"}, want: 8},
		{name: "preferred missing", preferred: []string{"이노비즈"}, held: []string{"벤처기업"}, want: 4.8},
		{name: "nothing held", required: []string{"벤처기업"}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := exampleProgram()
			p.RequiredCertifications = tt.required
			p.PreferredCertifications = tt.preferred
			o := exampleOrg()
			o.GovernmentCertifications = tt.held
			b := s.Score(ticketFor(t, p, o), Options{Now: now})
			assert.InDelta(t, tt.want, factor(t, b, FactorCertification), 1e-9)
		})
	}
}

func TestCompanyScale(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		scale funding.CompanyScale
		want  float64
	}{
		{scale: funding.ScaleSME, want: 8},
		{scale: funding.ScaleMidSized, want: 4},
		{scale: funding.ScaleLargeEnterprise, want: 1.6},
		{scale: "", want: 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.scale), func(t *testing.T) {
			p := exampleProgram()
			p.TargetCompanyScales = []funding.CompanyScale{funding.ScaleSME}
			o := exampleOrg()
			o.CompanyScaleType = tt.scale
			b := s.Score(ticketFor(t, p, o), Options{Now: now})
			assert.InDelta(t, tt.want, factor(t, b, FactorCompanyScale), 1e-9)
		})
	}
}

func TestRevenueAndEmployees(t *testing.T) {
	s := newScorer(t)

	p := exampleProgram()
	p.MinRevenue = int64Ptr(100 * funding.Eok)
	p.MaxEmployees = intPtr(49)

	tests := []struct {
		revenue   funding.RevenueBucket
		employees funding.EmployeeBucket
		revenueW  float64
		employeeW float64
	}{
		{revenue: funding.RevenueUnder1B, employees: funding.Employees10To49, revenueW: 0, employeeW: 6},
		{revenue: funding.Revenue1BTo10B, employees: funding.Employees50To99, revenueW: 3, employeeW: 3},
		{revenue: funding.Revenue10BTo50B, employees: funding.EmployeesOver300, revenueW: 6, employeeW: 0},
		{revenue: "", employees: "", revenueW: 3, employeeW: 3},
	}
	for _, tt := range tests {
		o := exampleOrg()
		o.RevenueRange = tt.revenue
		o.EmployeeCount = tt.employees
		b := s.Score(ticketFor(t, p, o), Options{Now: now})
		assert.InDelta(t, tt.revenueW, factor(t, b, FactorRevenue), 1e-9, string(tt.revenue))
		assert.InDelta(t, tt.employeeW, factor(t, b, FactorEmployees), 1e-9, string(tt.employees))
	}
}

func TestAgeAndLifecycle(t *testing.T) {
	s := newScorer(t)

	est := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	o := exampleOrg()
	o.EstablishedAt = &est

	p := exampleProgram()
	p.MinOperatingYears = intPtr(3)
	p.TargetLifecycleStages = []funding.LifecycleStage{funding.StageMature}

	b := s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 3, factor(t, b, FactorBusinessAge), 1e-9)
	assert.InDelta(t, 0, factor(t, b, FactorLifecycle), 1e-9)

	p.TargetLifecycleStages = []funding.LifecycleStage{funding.StageGrowth}
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 2.8, factor(t, b, FactorLifecycle), 1e-9)

	b = s.Score(ticketFor(t, p, exampleOrg()), Options{Now: now})
	assert.InDelta(t, 3, factor(t, b, FactorBusinessAge), 1e-9)
	assert.InDelta(t, 3.5, factor(t, b, FactorLifecycle), 1e-9)
}

func TestRegionBusinessTypeAndSupport(t *testing.T) {
	s := newScorer(t)

	p := exampleProgram()
	p.Regions = []string{"서울"}
	p.AllowedBusinessStructures = []funding.BusinessStructure{funding.BusinessCorporation}
	p.SupportTypes = []string{"R&D", "사업화"}

	o := exampleOrg()
	o.Region = "서울특별시"
	o.BusinessStructure = funding.BusinessCorporation
	o.PreferredSupportTypes = []string{"r&d"}

	b := s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 6, factor(t, b, FactorRegion), 1e-9)
	assert.InDelta(t, 5, factor(t, b, FactorBusinessType), 1e-9)
	assert.InDelta(t, 7, factor(t, b, FactorSupportType), 1e-9)

	o.Region = "부산"
	o.BusinessStructure = funding.BusinessIndividual
	o.PreferredSupportTypes = []string{"인력"}
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.Zero(t, factor(t, b, FactorRegion))
	assert.Zero(t, factor(t, b, FactorBusinessType))
	assert.Zero(t, factor(t, b, FactorSupportType))

	p.Regions = []string{"전국"}
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 6, factor(t, b, FactorRegion), 1e-9)

	p.Regions = []string{"광주"}
	o.Region = "경기도 광주시"
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.Zero(t, factor(t, b, FactorRegion))

	p.Regions = []string{"경기 광주"}
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 6, factor(t, b, FactorRegion), 1e-9)
}

func TestApplicableMarksComparedFactors(t *testing.T) {
	s := newScorer(t)
	b := s.Score(ticketFor(t, exampleProgram(), exampleOrg()), Options{Now: now})

	applicable := func(f Factor) bool {
		t.Helper()
		fs, ok := b.Get(f)
		require.True(t, ok, "factor %s missing", f)
		return fs.Applicable
	}
	assert.True(t, applicable(FactorIndustry))
	assert.True(t, applicable(FactorDeadline))
	assert.False(t, applicable(FactorCertification))
	assert.False(t, applicable(FactorRegion))
	assert.False(t, applicable(FactorBusinessType))
	assert.False(t, applicable(FactorSupportType))

	p := exampleProgram()
	p.Regions = []string{"서울"}
	p.Deadline = nil
	o := exampleOrg()
	o.Region = "서울특별시"
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.True(t, applicable(FactorRegion))
	assert.False(t, applicable(FactorDeadline))
}

func TestFinancialRelevance(t *testing.T) {
	s := newScorer(t)

	p := exampleProgram()
	p.RequiredInvestment = int64Ptr(5 * funding.Eok)
	p.BudgetAmount = int64Ptr(20 * funding.Eok)

	o := exampleOrg()
	o.InvestmentAmount = int64Ptr(3 * funding.Eok)
	o.RevenueRange = funding.RevenueUnder1B

	b := s.Score(ticketFor(t, p, o), Options{Now: now})
	// investment 0.5, budget up to three times revenue 0.6
	assert.InDelta(t, 4.3, factor(t, b, FactorFinancial), 1e-9)

	o.InvestmentAmount = int64Ptr(5 * funding.Eok)
	o.RevenueRange = funding.Revenue10BTo50B
	b = s.Score(ticketFor(t, p, o), Options{Now: now})
	assert.InDelta(t, 8, factor(t, b, FactorFinancial), 1e-9)
}

func TestCustomWeightsAreThreaded(t *testing.T) {
	w := DefaultWeights()
	w.Version = "exp-b"
	w.Deadline += w.Industry
	w.Industry = 0

	s, err := NewScorer(w)
	require.NoError(t, err)

	b := s.Score(ticketFor(t, exampleProgram(), exampleOrg()), Options{Now: now})
	fs, ok := b.Get(FactorIndustry)
	require.True(t, ok)
	assert.Zero(t, fs.Score)
	assert.Zero(t, fs.Ratio())
	assert.Equal(t, "exp-b", b.WeightsVersion)
	assert.Equal(t, w, s.Weights())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, mode)

	mode, err = ParseMode(" Historical ")
	require.NoError(t, err)
	assert.Equal(t, ModeHistorical, mode)

	_, err = ParseMode("missed")
	assert.Error(t, err)
}
