package classify

import (
	"fmt"
	"sort"
	"strings"
)

// TaxonomyVersion must be bumped whenever a keyword, alias or ministry entry
// changes, since any of those can move an already classified program.
const TaxonomyVersion = "2024.2"

type Industry string

const (
	IndustryICT           Industry = "ICT"
	IndustryBioHealth     Industry = "BIO_HEALTH"
	IndustryManufacturing Industry = "MANUFACTURING"
	IndustryEnergy        Industry = "ENERGY"
	IndustryEnvironment   Industry = "ENVIRONMENT"
	IndustryAgriculture   Industry = "AGRICULTURE"
	IndustryMarine        Industry = "MARINE"
	IndustryDefense       Industry = "DEFENSE"
	IndustryConstruction  Industry = "CONSTRUCTION"
	IndustryCulture       Industry = "CULTURE"
	IndustryGeneral       Industry = "GENERAL"
)

// Known reports whether the industry is a concrete taxonomy bucket.
func (i Industry) Known() bool {
	switch i {
	case IndustryICT, IndustryBioHealth, IndustryManufacturing, IndustryEnergy, IndustryEnvironment,
		IndustryAgriculture, IndustryMarine, IndustryDefense, IndustryConstruction, IndustryCulture:
		return true
	default:
		return false
	}
}

// Category is one taxonomy bucket. Keywords are matched against program text,
// aliases against organization sector names.
type Category struct {
	Industry Industry
	Label    string
	Keywords []string
	Aliases  []string
}

type Taxonomy struct {
	Version    string
	Categories []Category
	// Ministries maps a compacted ministry name to the industry it funds.
	Ministries map[string]Industry
}

// DefaultTaxonomy returns the built-in taxonomy. Category order is the
// tie-break order when two buckets score the same.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Version: TaxonomyVersion,
		Categories: []Category{
			{
				Industry: IndustryICT,
				Label:    "정보통신",
				Keywords: []string{"인공지능", "ai", "빅데이터", "데이터", "소프트웨어", "sw", "클라우드", "정보통신", "ict", "5g", "6g", "네트워크", "반도체", "메타버스", "블록체인", "사이버보안", "정보보호", "디지털", "iot", "사물인터넷", "딥러닝", "machine learning"},
				Aliases:  []string{"정보통신", "정보통신업", "it", "소프트웨어", "ict"},
			},
			{
				Industry: IndustryBioHealth,
				Label:    "바이오헬스",
				Keywords: []string{"바이오", "의료", "헬스케어", "신약", "의약품", "의료기기", "제약", "유전체", "진단", "치료제", "임상", "백신", "bio", "healthcare"},
				Aliases:  []string{"바이오", "바이오헬스", "의료", "제약", "헬스케어", "bio"},
			},
			{
				Industry: IndustryManufacturing,
				Label:    "제조",
				Keywords: []string{"제조", "소재", "부품", "장비", "스마트공장", "스마트팩토리", "뿌리산업", "기계", "자동차", "로봇", "디스플레이", "금형"},
				Aliases:  []string{"제조", "제조업", "소재부품", "기계", "자동차"},
			},
			{
				Industry: IndustryEnergy,
				Label:    "에너지",
				Keywords: []string{"에너지", "수소", "태양광", "풍력", "이차전지", "배터리", "원자력", "전력", "신재생"},
				Aliases:  []string{"에너지", "전력", "신재생에너지"},
			},
			{
				Industry: IndustryEnvironment,
				Label:    "환경",
				Keywords: []string{"환경", "기후", "탄소중립", "미세먼지", "폐기물", "재활용", "수질", "온실가스"},
				Aliases:  []string{"환경", "기후", "환경산업"},
			},
			{
				Industry: IndustryAgriculture,
				Label:    "농림식품",
				Keywords: []string{"농업", "농식품", "스마트팜", "축산", "식품", "농촌", "종자", "산림"},
				Aliases:  []string{"농업", "농식품", "식품", "축산", "임업"},
			},
			{
				Industry: IndustryMarine,
				Label:    "해양수산",
				Keywords: []string{"해양", "수산", "해운", "항만", "조선", "선박", "수산양식"},
				Aliases:  []string{"해양", "수산", "조선", "해운"},
			},
			{
				Industry: IndustryDefense,
				Label:    "국방",
				Keywords: []string{"국방", "방산", "무기체계", "방위"},
				Aliases:  []string{"국방", "방산", "방위산업"},
			},
			{
				Industry: IndustryConstruction,
				Label:    "건설교통",
				Keywords: []string{"건설", "건축", "국토", "교통", "스마트시티", "철도", "도로"},
				Aliases:  []string{"건설", "건설업", "건축", "교통"},
			},
			{
				Industry: IndustryCulture,
				Label:    "문화콘텐츠",
				Keywords: []string{"문화", "콘텐츠", "게임", "관광", "스포츠", "미디어", "방송", "영상"},
				Aliases:  []string{"문화", "콘텐츠", "게임", "미디어"},
			},
		},
		Ministries: map[string]Industry{
			"보건복지부":    IndustryBioHealth,
			"복지부":      IndustryBioHealth,
			"식품의약품안전처": IndustryBioHealth,
			"식약처":      IndustryBioHealth,
			"농림축산식품부":  IndustryAgriculture,
			"농식품부":     IndustryAgriculture,
			"농촌진흥청":    IndustryAgriculture,
			"산림청":      IndustryAgriculture,
			"해양수산부":    IndustryMarine,
			"해수부":      IndustryMarine,
			"환경부":      IndustryEnvironment,
			"기상청":      IndustryEnvironment,
			"국방부":      IndustryDefense,
			"방위사업청":    IndustryDefense,
			"방사청":      IndustryDefense,
			"국토교통부":    IndustryConstruction,
			"국토부":      IndustryConstruction,
			"문화체육관광부":  IndustryCulture,
			"문체부":      IndustryCulture,
		},
	}
}

// Validate checks that keywords are unique across categories and survive
// normalization unchanged.
func (t *Taxonomy) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("taxonomy version is required")
	}

	owners := make(map[string]Industry)
	for _, category := range t.Categories {
		if !category.Industry.Known() {
			return fmt.Errorf("category %q: industry must be a concrete bucket", category.Label)
		}
		for _, kw := range category.Keywords {
			if Normalize(kw) != kw {
				return fmt.Errorf("category %s: keyword %q is not normalized", category.Industry, kw)
			}
			if owner, ok := owners[kw]; ok {
				return fmt.Errorf("keyword %q belongs to both %s and %s", kw, owner, category.Industry)
			}
			owners[kw] = category.Industry
		}
	}
	return nil
}

// Label returns the display label for an industry.
func (t *Taxonomy) Label(industry Industry) string {
	for _, category := range t.Categories {
		if category.Industry == industry {
			return category.Label
		}
	}
	if industry == IndustryGeneral {
		return "일반"
	}
	return string(industry)
}

// MinistryIndustry looks up the industry a ministry is dedicated to. Names
// with a trailing agency, e.g. "보건복지부(한국보건산업진흥원)", match by prefix.
func (t *Taxonomy) MinistryIndustry(ministry string) (Industry, bool) {
	key := Compact(ministry)
	if key == "" {
		return "", false
	}
	if industry, ok := t.Ministries[key]; ok {
		return industry, true
	}

	names := make([]string, 0, len(t.Ministries))
	for name := range t.Ministries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		if strings.HasPrefix(key, name) {
			return t.Ministries[name], true
		}
	}
	return "", false
}
