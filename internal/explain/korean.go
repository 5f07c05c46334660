package explain

import (
	"fmt"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

var reasonTemplates = map[scoring.Factor]string{
	scoring.FactorCompanyScale:  "기업 규모가 지원 대상 규모에 부합합니다",
	scoring.FactorRevenue:       "매출 규모가 신청 요건 범위 안에 있습니다",
	scoring.FactorEmployees:     "종업원 수가 신청 요건 범위 안에 있습니다",
	scoring.FactorBusinessAge:   "업력이 신청 요건을 충족합니다",
	scoring.FactorRegion:        "소재지가 지원 지역에 해당합니다",
	scoring.FactorCertification: "보유 인증이 요구·우대 인증과 일치합니다",
	scoring.FactorBusinessType:  "사업자 유형이 신청 가능 유형입니다",
	scoring.FactorLifecycle:     "기업 성장 단계가 지원 대상 단계와 맞습니다",
	scoring.FactorIndustry:      "보유 기술과 사업 분야의 연관성이 높습니다",
	scoring.FactorDeadline:      "마감이 임박했으니 서둘러 준비하세요",
	scoring.FactorFinancial:     "사업 예산과 투자 조건이 기관 재무 규모에 적합합니다",
	scoring.FactorSupportType:   "선호하는 지원 유형을 제공하는 사업입니다",
}

var cautionTemplates = map[scoring.Factor]string{
	scoring.FactorCompanyScale:  "기업 규모가 지원 대상과 차이가 있어 자격 확인이 필요합니다",
	scoring.FactorRevenue:       "매출 규모가 요건 경계에 있어 확인이 필요합니다",
	scoring.FactorEmployees:     "종업원 수가 요건 경계에 있어 확인이 필요합니다",
	scoring.FactorBusinessAge:   "업력 요건을 일부만 충족합니다",
	scoring.FactorRegion:        "지원 지역 요건을 확인하세요",
	scoring.FactorCertification: "요구 인증 중 일부가 없습니다",
	scoring.FactorBusinessType:  "사업자 유형 요건을 확인하세요",
	scoring.FactorLifecycle:     "성장 단계가 주요 지원 대상과 다릅니다",
	scoring.FactorIndustry:      "보유 기술과 사업 분야의 연관성이 낮습니다",
	scoring.FactorDeadline:      "마감까지 여유가 있거나 이미 지난 공고입니다",
	scoring.FactorFinancial:     "사업 규모 대비 매칭 자금 부담이 클 수 있습니다",
	scoring.FactorSupportType:   "선호 지원 유형과 일부만 일치합니다",
}

var tierTexts = map[Tier]string{
	TierStrong:      "적극 지원을 권장합니다",
	TierRecommended: "지원을 권장합니다",
	TierConsider:    "세부 요건을 검토한 뒤 지원 여부를 결정하세요",
	TierLow:         "우선순위가 낮은 공고입니다",
}

// KoreanRenderer is the default template renderer.
type KoreanRenderer struct{}

func (KoreanRenderer) Summary(f Facts) string {
	title := f.ProgramTitle
	if title == "" {
		title = "해당"
	}
	field := ""
	if f.Industry.Industry.Known() {
		field = fmt.Sprintf(" %s 분야", classify.DefaultTaxonomy().Label(f.Industry.Industry))
	}
	return fmt.Sprintf("%s%s 공고의 적합도는 %.1f점입니다.", title, field, f.Total)
}

func (KoreanRenderer) Reason(s scoring.FactorScore) string {
	text, ok := reasonTemplates[s.Factor]
	if !ok {
		text = s.Factor.Label() + " 항목 점수가 높습니다"
	}
	return fmt.Sprintf("%s (%s %.1f/%.0f)", text, s.Factor.Label(), s.Score, s.Max)
}

func (KoreanRenderer) Caution(s scoring.FactorScore) string {
	text, ok := cautionTemplates[s.Factor]
	if !ok {
		text = s.Factor.Label() + " 항목 점수가 낮습니다"
	}
	return fmt.Sprintf("%s (%s %.1f/%.0f)", text, s.Factor.Label(), s.Score, s.Max)
}

func (KoreanRenderer) Notice(code string, m Match) string {
	switch code {
	case CautionProfile:
		return fmt.Sprintf("기관 프로필 완성도가 %d%%로 낮아 점수가 보수적으로 계산되었습니다", m.Completeness.Percentage)
	case CautionLowSignal:
		return "공고의 자격 요건 추출 신뢰도가 낮아 원문 확인이 필요합니다"
	default:
		return code
	}
}

func (KoreanRenderer) Recommendation(t Tier) string {
	if text, ok := tierTexts[t]; ok {
		return text
	}
	return string(t)
}
