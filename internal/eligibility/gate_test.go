package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

var now = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func newGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	gate, err := New(classify.DefaultIndustryClassifier(), cfg)
	require.NoError(t, err)
	return gate
}

func ictCompany() *funding.Organization {
	return &funding.Organization{
		ID:                       "org-1",
		Type:                     funding.OrgCompany,
		IndustrySector:           "ICT",
		TechnologyReadinessLevel: intPtr(5),
		KeyTechnologies:          []string{"AI", "데이터분석"},
	}
}

func program(title string) *funding.Program {
	deadline := now.AddDate(0, 0, 30)
	return &funding.Program{
		ID:           "p-1",
		Title:        title,
		TargetType:   []funding.OrganizationType{funding.OrgCompany},
		Deadline:     &deadline,
		BudgetAmount: int64Ptr(100_000_000),
	}
}

func TestOpenCompetitionPasses(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	result := gate.Evaluate(program("AI 인공지능 기술개발 사업"), ictCompany())

	assert.True(t, result.Passed)
	assert.Equal(t, ApplicationOpenCompetition, result.ApplicationType)
	assert.Empty(t, result.BlockReasons)
	assert.NotNil(t, result.BlockReasons)
	assert.Equal(t, classify.IndustryICT, result.Industry.Industry)

	ticket, ok := result.Ticket()
	require.True(t, ok)
	assert.True(t, ticket.Valid())
	assert.Equal(t, "p-1", ticket.Program().ID)
	assert.Equal(t, "org-1", ticket.Organization().ID)
	assert.Equal(t, classify.IndustryICT, ticket.OrganizationIndustry().Industry)
}

func TestInstitutionOnlyBlocksCompany(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	result := gate.Evaluate(program("출연(연) 전용 과제"), ictCompany())
	assert.False(t, result.Passed)
	assert.True(t, result.Blocked(ReasonInstitutionalOnly))

	_, ok := result.Ticket()
	assert.False(t, ok)

	institute := ictCompany()
	institute.Type = funding.OrgResearchInstitute
	p := program("출연(연) 전용 과제")
	p.TargetType = nil
	assert.True(t, gate.Evaluate(p, institute).Passed)
}

func TestDesignatedTitlesAlwaysBlock(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	titles := []string{
		"2024년 지정과제 공고",
		"[위탁과제] 수행기관 모집",
		"디지털 지정 과제 재공고",
		"AI 위탁 과제(2차)",
	}
	orgTypes := []funding.OrganizationType{
		funding.OrgCompany, funding.OrgResearchInstitute, funding.OrgUniversity, funding.OrgPublicInstitution, "",
	}
	for _, title := range titles {
		for _, orgType := range orgTypes {
			org := ictCompany()
			org.Type = orgType
			result := gate.Evaluate(program(title), org)
			assert.False(t, result.Passed, title)
			assert.True(t, result.Blocked(ReasonDesignatedProject), title)
			assert.Equal(t, ApplicationDesignated, result.ApplicationType, title)
		}
	}
}

func TestDemandSurvey(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	result := gate.Evaluate(program("2025년도 기술 수요조사"), ictCompany())
	assert.True(t, result.Blocked(ReasonDemandSurvey))
	assert.Equal(t, ApplicationDemandSurvey, result.ApplicationType)
}

func TestApplicationTypePriority(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	p := program("지정과제 기술수요조사")
	p.Deadline, p.BudgetAmount = nil, nil
	result := gate.Evaluate(p, ictCompany())

	assert.Equal(t, ApplicationDesignated, result.ApplicationType)
	assert.Equal(t, []BlockReason{ReasonDesignatedProject, ReasonDemandSurvey, ReasonConsolidated}, result.BlockReasons)

	p = program("기술수요조사")
	p.Deadline, p.BudgetAmount = nil, nil
	assert.Equal(t, ApplicationDemandSurvey, gate.Evaluate(p, ictCompany()).ApplicationType)
}

func TestTrainingRule(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	result := gate.Evaluate(program("AI 교육훈련 지원사업"), ictCompany())
	assert.True(t, result.Blocked(ReasonTrainingProgram))

	result = gate.Evaluate(program("AI 교육훈련 기술개발 과제공모"), ictCompany())
	assert.False(t, result.Blocked(ReasonTrainingProgram))

	result = gate.Evaluate(program("디지털 인재성장 기술개발 사업"), ictCompany())
	assert.False(t, result.Blocked(ReasonTrainingProgram))

	university := ictCompany()
	university.Type = funding.OrgUniversity
	p := program("AI 교육훈련 지원사업")
	p.TargetType = nil
	assert.True(t, gate.Evaluate(p, university).Passed)
}

func TestHospitalOnly(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	assert.True(t, gate.Evaluate(program("연구중심병원 육성 R&D"), ictCompany()).Blocked(ReasonHospitalOnly))
	assert.True(t, gate.Evaluate(program("혁신형 의사과학자 공동연구"), ictCompany()).Blocked(ReasonHospitalOnly))
}

func TestConsolidatedAnnouncement(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	p := program("2024년 통합 공고")
	p.Deadline, p.ApplicationStart, p.BudgetAmount = nil, nil, nil
	result := gate.Evaluate(p, ictCompany())
	assert.True(t, result.Blocked(ReasonConsolidated))
	assert.Equal(t, ApplicationConsolidated, result.ApplicationType)

	start := now
	deadline := now.AddDate(0, 1, 0)
	variants := []func(*funding.Program){
		func(p *funding.Program) { p.Deadline = &deadline },
		func(p *funding.Program) { p.ApplicationStart = &start },
		func(p *funding.Program) { p.BudgetAmount = int64Ptr(1) },
	}
	for _, set := range variants {
		p := program("2024년 통합 공고")
		p.Deadline, p.ApplicationStart, p.BudgetAmount = nil, nil, nil
		set(p)
		result := gate.Evaluate(p, ictCompany())
		assert.False(t, result.Blocked(ReasonConsolidated))
		assert.Equal(t, ApplicationOpenCompetition, result.ApplicationType)
	}
}

func TestOrgTypeRule(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	p := program("AI 원천기술 개발")
	p.TargetType = []funding.OrganizationType{funding.OrgResearchInstitute, funding.OrgUniversity}
	assert.True(t, gate.Evaluate(p, ictCompany()).Blocked(ReasonOrgTypeMismatch))

	unknown := ictCompany()
	unknown.Type = ""
	assert.False(t, gate.Evaluate(p, unknown).Blocked(ReasonOrgTypeMismatch))

	p.TargetType = nil
	assert.False(t, gate.Evaluate(p, ictCompany()).Blocked(ReasonOrgTypeMismatch))
}

func TestTRLRule(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	tests := []struct {
		name     string
		orgTRL   *int
		min, max *int
		blocked  bool
	}{
		{name: "above range", orgTRL: intPtr(8), min: intPtr(1), max: intPtr(3), blocked: true},
		{name: "inside range", orgTRL: intPtr(5), min: intPtr(3), max: intPtr(7)},
		{name: "on bound", orgTRL: intPtr(7), min: intPtr(3), max: intPtr(7)},
		{name: "below min only", orgTRL: intPtr(5), min: intPtr(6), blocked: true},
		{name: "above max only", orgTRL: intPtr(5), max: intPtr(4), blocked: true},
		{name: "unknown org trl", min: intPtr(1), max: intPtr(3)},
		{name: "invalid org trl", orgTRL: intPtr(0), min: intPtr(1), max: intPtr(3)},
		{name: "invalid program bound", orgTRL: intPtr(8), min: intPtr(1), max: intPtr(12)},
		{name: "reversed range", orgTRL: intPtr(8), min: intPtr(7), max: intPtr(3)},
		{name: "no range", orgTRL: intPtr(8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := ictCompany()
			org.TechnologyReadinessLevel = tt.orgTRL
			p := program("AI 기술개발")
			p.MinTRL, p.MaxTRL = tt.min, tt.max
			assert.Equal(t, tt.blocked, gate.Evaluate(p, org).Blocked(ReasonTRLOutOfRange))
		})
	}
}

func TestCrossIndustryRule(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	bio := program("신약 임상 지원")
	bio.Keywords = []string{"신약"}
	result := gate.Evaluate(bio, ictCompany())
	assert.True(t, result.Blocked(ReasonIndustryMismatch))
	assert.Equal(t, classify.IndustryBioHealth, result.Industry.Industry)

	bio.Keywords = []string{"신약", "데이터 분석"}
	assert.True(t, gate.Evaluate(bio, ictCompany()).Passed)

	bio.Keywords = nil
	assert.False(t, gate.Evaluate(bio, ictCompany()).Blocked(ReasonIndustryMismatch))

	noSector := ictCompany()
	noSector.IndustrySector = ""
	bio.Keywords = []string{"신약"}
	assert.False(t, gate.Evaluate(bio, noSector).Blocked(ReasonIndustryMismatch))

	noTech := ictCompany()
	noTech.KeyTechnologies = nil
	assert.False(t, gate.Evaluate(bio, noTech).Blocked(ReasonIndustryMismatch))
}

func TestCrossIndustryMinistryVariant(t *testing.T) {
	p := program("디지털 플랫폼 구축")
	p.Ministry = "보건복지부"
	p.Keywords = []string{"플랫폼"}

	result := newGate(t, DefaultConfig()).Evaluate(p, ictCompany())
	assert.True(t, result.Blocked(ReasonMinistryIndustryMismatch))
	assert.False(t, result.Blocked(ReasonIndustryMismatch))
	assert.True(t, result.Industry.MinistryBased)

	cfg := DefaultConfig()
	cfg.Affinity = []classify.AffinityEntry{{From: classify.IndustryICT, To: classify.IndustryBioHealth, Score: 0.6}}
	assert.True(t, newGate(t, cfg).Evaluate(p, ictCompany()).Passed)

	cfg = DefaultConfig()
	cfg.AffinityThreshold = 0
	assert.True(t, newGate(t, cfg).Evaluate(p, ictCompany()).Passed)
}

func TestSMEScaleRule(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	large := ictCompany()
	large.CompanyScaleType = funding.ScaleLargeEnterprise

	p := program("중소기업 기술혁신개발사업")
	p.Ministry = "중소벤처기업부"
	assert.True(t, gate.Evaluate(p, large).Blocked(ReasonSMEScale))

	marker := program("AI 중소기업 전용 R&D")
	marker.Ministry = "과학기술정보통신부"
	assert.True(t, gate.Evaluate(marker, large).Blocked(ReasonSMEScale))

	sme := ictCompany()
	sme.CompanyScaleType = funding.ScaleSME
	assert.False(t, gate.Evaluate(p, sme).Blocked(ReasonSMEScale))

	open := program("AI 기술개발")
	open.Ministry = "과학기술정보통신부"
	assert.False(t, gate.Evaluate(open, large).Blocked(ReasonSMEScale))
}

func TestReasonsAccumulateInRuleOrder(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	p := &funding.Program{
		Title:      "지정과제 지정공모 출연연 전용",
		TargetType: []funding.OrganizationType{funding.OrgResearchInstitute},
		MinTRL:     intPtr(1),
		MaxTRL:     intPtr(3),
	}
	org := ictCompany()
	org.TechnologyReadinessLevel = intPtr(8)

	result := gate.Evaluate(p, org)
	assert.Equal(t, []BlockReason{
		ReasonDesignatedProject,
		ReasonInstitutionalOnly,
		ReasonConsolidated,
		ReasonOrgTypeMismatch,
		ReasonTRLOutOfRange,
	}, result.BlockReasons)
}

func TestEvaluateToleratesMissingInput(t *testing.T) {
	gate := newGate(t, DefaultConfig())

	result := gate.Evaluate(nil, nil)
	assert.Equal(t, []BlockReason{ReasonConsolidated}, result.BlockReasons)

	result = gate.Evaluate(program(""), &funding.Organization{})
	assert.True(t, result.Passed)
}

func TestCustomTitleRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TitleRules = []TitleRule{{Name: "pilot", Patterns: []string{"시범"}, Reason: ReasonDemandSurvey}}
	gate := newGate(t, cfg)

	assert.True(t, gate.Evaluate(program("시범 사업"), ictCompany()).Blocked(ReasonDemandSurvey))
	assert.True(t, gate.Evaluate(program("지정과제"), ictCompany()).Passed)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	require.Error(t, err)

	_, err = New(classify.DefaultIndustryClassifier(), Config{AffinityThreshold: 1.5})
	require.Error(t, err)

	_, err = New(classify.DefaultIndustryClassifier(), Config{TitleRules: []TitleRule{{Name: "empty"}}})
	require.Error(t, err)

	_, err = New(classify.DefaultIndustryClassifier(), Config{Affinity: []classify.AffinityEntry{{From: "X", To: classify.IndustryICT}}})
	require.Error(t, err)
}

func TestTitleRulesIndividually(t *testing.T) {
	for _, rule := range DefaultTitleRules {
		t.Run(rule.Name, func(t *testing.T) {
			for _, pattern := range rule.Patterns {
				assert.Equal(t, pattern, classify.Compact(pattern), "pattern must be compact")
				assert.True(t, rule.Matches("2024"+pattern+"공고"))
			}
			for _, override := range rule.Overrides {
				assert.False(t, rule.Matches(rule.Patterns[0]+override))
			}
			assert.False(t, rule.Matches("일반공모"))
		})
	}
}
