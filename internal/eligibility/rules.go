package eligibility

import (
	"strings"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

type BlockReason string

const (
	ReasonDesignatedProject        BlockReason = "DESIGNATED_PROJECT"
	ReasonDemandSurvey             BlockReason = "DEMAND_SURVEY"
	ReasonInstitutionalOnly        BlockReason = "INSTITUTIONAL_ONLY"
	ReasonHospitalOnly             BlockReason = "HOSPITAL_ONLY"
	ReasonTrainingProgram          BlockReason = "TRAINING_PROGRAM"
	ReasonConsolidated             BlockReason = "CONSOLIDATED_ANNOUNCEMENT"
	ReasonOrgTypeMismatch          BlockReason = "ORG_TYPE_MISMATCH"
	ReasonTRLOutOfRange            BlockReason = "TRL_OUT_OF_RANGE"
	ReasonIndustryMismatch         BlockReason = "INDUSTRY_MISMATCH"
	ReasonMinistryIndustryMismatch BlockReason = "MINISTRY_INDUSTRY_MISMATCH"
	ReasonSMEScale                 BlockReason = "SME_SCALE_BLOCK"
)

// Description returns a short Korean description for display.
func (r BlockReason) Description() string {
	switch r {
	case ReasonDesignatedProject:
		return "지정·위탁 과제로 공개 경쟁 대상이 아닙니다"
	case ReasonDemandSurvey:
		return "기술수요조사 공고입니다"
	case ReasonInstitutionalOnly:
		return "출연연구기관 전용 공고입니다"
	case ReasonHospitalOnly:
		return "병원·의료기관 전용 공고입니다"
	case ReasonTrainingProgram:
		return "교육·인력양성 사업입니다"
	case ReasonConsolidated:
		return "세부 공고가 별도로 게시되는 통합 공고입니다"
	case ReasonOrgTypeMismatch:
		return "지원 대상 기관 유형이 아닙니다"
	case ReasonTRLOutOfRange:
		return "기술성숙도(TRL)가 지원 범위를 벗어납니다"
	case ReasonIndustryMismatch:
		return "사업 분야가 기관 산업과 맞지 않습니다"
	case ReasonMinistryIndustryMismatch:
		return "주관 부처의 전문 분야가 기관 산업과 맞지 않습니다"
	case ReasonSMEScale:
		return "중소기업 전용 사업으로 대기업은 신청할 수 없습니다"
	default:
		return string(r)
	}
}

type ApplicationType string

const (
	ApplicationOpenCompetition ApplicationType = "OPEN_COMPETITION"
	ApplicationDesignated      ApplicationType = "DESIGNATED_PROJECT"
	ApplicationDemandSurvey    ApplicationType = "DEMAND_SURVEY"
	ApplicationConsolidated    ApplicationType = "CONSOLIDATED_ANNOUNCEMENT"
)

// priority is the tie-break order when several structural markers fire.
func (t ApplicationType) priority() int {
	switch t {
	case ApplicationDesignated:
		return 3
	case ApplicationDemandSurvey:
		return 2
	case ApplicationConsolidated:
		return 1
	default:
		return 0
	}
}

// TitleRule is one administrative marker rule applied to program titles.
// Patterns and Overrides are compared against the compacted title, so they
// must be written without spaces or brackets.
type TitleRule struct {
	Name            string
	Patterns        []string
	Overrides       []string
	Reason          BlockReason
	ApplicationType ApplicationType
	// BlockedFor limits the rule to these organization types. Empty means all.
	BlockedFor []funding.OrganizationType
}

// Matches reports whether the compacted title carries one of the patterns and
// none of the overrides.
func (r TitleRule) Matches(compactTitle string) bool {
	if !containsAny(compactTitle, r.Patterns) {
		return false
	}
	return !containsAny(compactTitle, r.Overrides)
}

// AppliesTo reports whether the rule blocks the organization type. An unknown
// type is only blocked by rules that apply to everyone.
func (r TitleRule) AppliesTo(orgType funding.OrganizationType) bool {
	if len(r.BlockedFor) == 0 {
		return true
	}
	for _, t := range r.BlockedFor {
		if t == orgType {
			return true
		}
	}
	return false
}

var companyOnly = []funding.OrganizationType{funding.OrgCompany}

// DefaultTitleRules is evaluated in order; block reasons keep this order.
var DefaultTitleRules = []TitleRule{
	{
		Name:            "designated",
		Patterns:        []string{"지정과제", "위탁과제", "지정공모"},
		Reason:          ReasonDesignatedProject,
		ApplicationType: ApplicationDesignated,
	},
	{
		Name:            "demand_survey",
		Patterns:        []string{"수요조사"},
		Reason:          ReasonDemandSurvey,
		ApplicationType: ApplicationDemandSurvey,
	},
	{
		Name:       "institution_only",
		Patterns:   []string{"출연연전용", "출연연구기관전용", "출연연대상", "정부출연연구기관대상"},
		Reason:     ReasonInstitutionalOnly,
		BlockedFor: companyOnly,
	},
	{
		Name:       "hospital_only",
		Patterns:   []string{"병원전용", "의료기관전용", "연구중심병원", "의사과학자", "임상의사"},
		Reason:     ReasonHospitalOnly,
		BlockedFor: companyOnly,
	},
	{
		// Many real R&D calls carry 인재성장 in the title next to 기술개발.
		Name:       "training",
		Patterns:   []string{"교육훈련", "인력양성", "인재양성", "인재성장", "아카데미"},
		Overrides:  []string{"기술개발", "과제공모"},
		Reason:     ReasonTrainingProgram,
		BlockedFor: companyOnly,
	},
}

var (
	// smeAuthorities are compacted ministry or agency names that fund SMEs only.
	smeAuthorities  = []string{"중소벤처기업부", "중기부", "중소기업청", "중소기업기술정보진흥원", "창업진흥원", "중소벤처기업진흥공단"}
	smeTitleMarkers = []string{"중소기업전용", "중소기업대상", "중소기업만", "중소기업지원사업"}
)

// SMEOnly reports whether a program is restricted to small and medium
// enterprises, either by its funding authority or by its title.
func SMEOnly(p *funding.Program) bool {
	if p == nil {
		return false
	}
	if containsAny(classify.Compact(p.Ministry), smeAuthorities) || containsAny(classify.Compact(p.Agency), smeAuthorities) {
		return true
	}
	return containsAny(classify.Compact(p.Title), smeTitleMarkers)
}

func containsAny(text string, patterns []string) bool {
	if text == "" {
		return false
	}
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
