package classify

import (
	"sort"
	"strings"
)

// provinceAliases maps the spellings announcements use for the seventeen
// first-level divisions to one key.
var provinceAliases = map[string][]string{
	"서울": {"서울특별시", "서울시", "서울", "seoul"},
	"부산": {"부산광역시", "부산시", "부산", "busan"},
	"대구": {"대구광역시", "대구시", "대구", "daegu"},
	"인천": {"인천광역시", "인천시", "인천", "incheon"},
	"광주": {"광주광역시", "광주", "gwangju"},
	"대전": {"대전광역시", "대전시", "대전", "daejeon"},
	"울산": {"울산광역시", "울산시", "울산", "ulsan"},
	"세종": {"세종특별자치시", "세종시", "세종", "sejong"},
	"경기": {"경기도", "경기", "gyeonggi"},
	"강원": {"강원특별자치도", "강원도", "강원", "gangwon"},
	"충북": {"충청북도", "충북", "chungbuk"},
	"충남": {"충청남도", "충남", "chungnam"},
	"전북": {"전북특별자치도", "전라북도", "전북", "jeonbuk"},
	"전남": {"전라남도", "전남", "jeonnam"},
	"경북": {"경상북도", "경북", "gyeongbuk"},
	"경남": {"경상남도", "경남", "gyeongnam"},
	"제주": {"제주특별자치도", "제주도", "제주", "jeju"},
}

type provinceAlias struct {
	alias, province string
}

// provincePrefixes is longest first so "경기도광주시" strips "경기도", not "경기".
var provincePrefixes = func() []provinceAlias {
	var out []provinceAlias
	for province, aliases := range provinceAliases {
		for _, a := range aliases {
			out = append(out, provinceAlias{alias: a, province: province})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].alias) != len(out[j].alias) {
			return len(out[i].alias) > len(out[j].alias)
		}
		return out[i].alias < out[j].alias
	})
	return out
}()

// Region is a place split into its province and, when given, the city,
// county or district inside it.
type Region struct {
	Province string
	District string
}

// ParseRegion reads names like "경기도 광주시" or "서울". ok is false when the
// text does not start with a known province.
func ParseRegion(text string) (Region, bool) {
	c := Compact(text)
	for _, p := range provincePrefixes {
		rest, found := strings.CutPrefix(c, p.alias)
		if !found {
			continue
		}
		return Region{Province: p.province, District: trimDistrictSuffix(rest)}, true
	}
	return Region{}, false
}

func trimDistrictSuffix(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return ""
	}
	switch runes[len(runes)-1] {
	case '시', '군', '구':
		return string(runes[:len(runes)-1])
	}
	return s
}

// SameRegion reports whether two region names can refer to the same place.
// Provinces must agree; districts only when both sides name one. Names
// outside the province table must match exactly after normalization.
func SameRegion(a, b string) bool {
	ra, okA := ParseRegion(a)
	rb, okB := ParseRegion(b)
	if !okA || !okB {
		ca, cb := Compact(a), Compact(b)
		return ca != "" && ca == cb
	}
	if ra.Province != rb.Province {
		return false
	}
	return ra.District == "" || rb.District == "" || ra.District == rb.District
}
