package classify

import "strings"

type TRLStage string

const (
	StageBasic             TRLStage = "BASIC"
	StageApplied           TRLStage = "APPLIED"
	StageCommercialization TRLStage = "COMMERCIALIZATION"
	StageUnknown           TRLStage = "UNKNOWN"
)

var stageLabels = map[TRLStage]string{
	StageBasic:             "기초연구",
	StageApplied:           "응용·개발",
	StageCommercialization: "실증·사업화",
	StageUnknown:           "미정",
}

// Label returns the Korean display label of the stage.
func (s TRLStage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return stageLabels[StageUnknown]
}

// Rank orders stages from basic research to commercialization. UNKNOWN is -1.
func (s TRLStage) Rank() int {
	switch s {
	case StageBasic:
		return 0
	case StageApplied:
		return 1
	case StageCommercialization:
		return 2
	default:
		return -1
	}
}

type TRLClassification struct {
	Stage      TRLStage `json:"stage"`
	StageLabel string   `json:"stageLabel"`
}

// StageForLevel maps a single readiness level onto its stage.
func StageForLevel(level int) TRLStage {
	switch {
	case level >= 1 && level <= 3:
		return StageBasic
	case level >= 4 && level <= 6:
		return StageApplied
	case level >= 7 && level <= 9:
		return StageCommercialization
	default:
		return StageUnknown
	}
}

// ClassifyTRL derives the stage of a program from its declared range. A single
// known bound decides on its own; with both bounds the midpoint decides.
// Levels outside 1..9 count as missing.
func ClassifyTRL(minTRL, maxTRL *int) TRLClassification {
	lo, hasLo := trlBound(minTRL)
	hi, hasHi := trlBound(maxTRL)

	var stage TRLStage
	switch {
	case hasLo && hasHi:
		if lo > hi {
			lo, hi = hi, lo
		}
		stage = StageForLevel((lo + hi) / 2)
	case hasLo:
		stage = StageForLevel(lo)
	case hasHi:
		stage = StageForLevel(hi)
	default:
		stage = StageUnknown
	}

	return TRLClassification{Stage: stage, StageLabel: stage.Label()}
}

func trlBound(level *int) (int, bool) {
	if level == nil || *level < 1 || *level > 9 {
		return 0, false
	}
	return *level, true
}

type stageMarker struct {
	markers []string
	lo, hi  int
}

var stageMarkers = []stageMarker{
	{markers: []string{"기초연구", "원천기술", "원천연구", "개념검증", "기초과학"}, lo: 1, hi: 3},
	{markers: []string{"응용연구", "시제품", "프로토타입", "기술개발", "성능검증"}, lo: 4, hi: 6},
	{markers: []string{"실증", "사업화", "상용화", "양산", "시장진출", "현장적용"}, lo: 7, hi: 9},
}

// TRLRange is an inclusive readiness range.
type TRLRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// InferTRLRange estimates a readiness range from stage vocabulary in the text,
// for programs that do not declare one. The result spans every stage that is
// mentioned.
func InferTRLRange(title, description string) (TRLRange, bool) {
	text := Compact(title + " " + description)
	if text == "" {
		return TRLRange{}, false
	}

	result, found := TRLRange{Min: 10, Max: 0}, false
	for _, stage := range stageMarkers {
		for _, marker := range stage.markers {
			if !strings.Contains(text, marker) {
				continue
			}
			found = true
			result.Min = min(result.Min, stage.lo)
			result.Max = max(result.Max, stage.hi)
			break
		}
	}
	if !found {
		return TRLRange{}, false
	}
	return result, true
}
