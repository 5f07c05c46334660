package partner

import (
	"fmt"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

const neutral = 0.5

var reasonTexts = map[Factor]string{
	FactorIndustry:   "산업 분야가 같거나 인접해 공동 연구 주제를 잡기 쉽습니다",
	FactorTRL:        "기술성숙도 격차가 역할 분담에 적합합니다",
	FactorTechnology: "보유 기술 키워드가 상당 부분 겹칩니다",
	FactorScale:      "기관 유형과 규모가 컨소시엄 구성에 적합합니다",
}

func industryAdjacency(c *classify.IndustryClassifier, table *classify.AffinityTable, a, b *funding.Organization) float64 {
	ia := c.ClassifySector(a.IndustrySector).Industry
	ib := c.ClassifySector(b.IndustrySector).Industry
	score, ok := table.Affinity(ia, ib)
	if !ok {
		return neutral
	}
	return score
}

// trlGap rewards a partner one to three levels ahead, which brings the
// maturity a needs to move towards commercialization.
func trlGap(a, b *funding.Organization) float64 {
	ta, okA := a.TRL()
	tb, okB := b.TRL()
	if !okA || !okB {
		return neutral
	}
	switch gap := tb - ta; {
	case gap >= 1 && gap <= 3:
		return 1
	case gap == 0:
		return 0.7
	case gap >= -2 && gap < 0:
		return 0.5
	case gap > 3:
		return 0.4
	default:
		return 0.2
	}
}

// technologyOverlap is the share of a's technologies that b also lists.
func technologyOverlap(a, b *funding.Organization) float64 {
	own := classify.Terms(a.Technologies())
	theirs := classify.Terms(b.Technologies())
	if len(own) == 0 || len(theirs) == 0 {
		return neutral
	}
	hits := 0
	for _, term := range own {
		for _, other := range theirs {
			if classify.TermsOverlap(term, other) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(own))
}

// scaleCompatibility prefers industry-academia pairs and, between companies,
// a partner larger than a.
func scaleCompatibility(a, b *funding.Organization) float64 {
	if !a.Type.Valid() || !b.Type.Valid() {
		return neutral
	}
	companyA, companyB := a.Type == funding.OrgCompany, b.Type == funding.OrgCompany
	switch {
	case companyA && !companyB:
		return 1
	case !companyA && companyB:
		return 0.8
	case !companyA && !companyB:
		return 0.6
	}

	ra, rb := a.CompanyScaleType.Rank(), b.CompanyScaleType.Rank()
	if ra < 0 || rb < 0 {
		return neutral
	}
	switch {
	case rb > ra:
		return 1
	case rb == ra:
		return 0.6
	default:
		return 0.4
	}
}

func explanation(b *funding.Organization, score float64) string {
	name := b.Name
	if name == "" {
		name = b.ID
	}
	if name == "" {
		name = "후보 기관"
	}
	var verdict string
	switch {
	case score >= 75:
		verdict = "컨소시엄 구성을 적극 검토할 만합니다"
	case score >= 55:
		verdict = "세부 역할을 조율하면 협력할 수 있습니다"
	default:
		verdict = "협력 시너지가 크지 않습니다"
	}
	return fmt.Sprintf("%s와의 협력 적합도는 %.1f점이며 %s.", name, score, verdict)
}
