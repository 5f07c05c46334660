package scoring

import (
	"strings"
	"time"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

// neutral is the credit for a factor whose organization data is unknown.
const neutral = 0.5

type input struct {
	program     *funding.Program
	org         *funding.Organization
	industry    classify.IndustryResult
	orgIndustry classify.IndustryResult
	now         time.Time
	mode        Mode
}

// factorFunc returns the share of the factor maximum earned, in [0,1], and
// whether it compared a program condition with known organization data.
// Unconstrained or unknown factors still earn credit but are not evidence.
// Factors read only their input and never each other.
type factorFunc func(in *input) (float64, bool)

var factorFuncs = map[Factor]factorFunc{
	FactorCompanyScale:  companyScale,
	FactorRevenue:       revenue,
	FactorEmployees:     employees,
	FactorBusinessAge:   businessAge,
	FactorRegion:        region,
	FactorCertification: certifications,
	FactorBusinessType:  businessType,
	FactorLifecycle:     lifecycle,
	FactorIndustry:      industryRelevance,
	FactorDeadline:      deadlineUrgency,
	FactorFinancial:     financialRelevance,
	FactorSupportType:   supportType,
}

func companyScale(in *input) (float64, bool) {
	targets := in.program.TargetCompanyScales
	if len(targets) == 0 {
		return 1, false
	}
	rank := in.org.CompanyScaleType.Rank()
	if rank < 0 {
		return neutral, false
	}

	distance := -1
	for _, target := range targets {
		if target.Rank() < 0 {
			continue
		}
		d := abs(target.Rank() - rank)
		if distance < 0 || d < distance {
			distance = d
		}
	}
	return stepDecay(distance), distance >= 0
}

func revenue(in *input) (float64, bool) {
	p := in.program
	if p.MinRevenue == nil && p.MaxRevenue == nil {
		return 1, false
	}
	lo, hi, ok := in.org.RevenueRange.Range()
	if !ok {
		return neutral, false
	}
	return rangeFit(lo, hi, p.MinRevenue, p.MaxRevenue)
}

func employees(in *input) (float64, bool) {
	p := in.program
	if p.MinEmployees == nil && p.MaxEmployees == nil {
		return 1, false
	}
	lo, hi, ok := in.org.EmployeeCount.Range()
	if !ok {
		return neutral, false
	}
	return rangeFit(int64(lo), int64(hi), widen(p.MinEmployees), widen(p.MaxEmployees))
}

func businessAge(in *input) (float64, bool) {
	p := in.program
	if p.MinOperatingYears == nil && p.MaxOperatingYears == nil {
		return 1, false
	}
	age, ok := in.org.BusinessAge(in.now)
	if !ok {
		return neutral, false
	}

	distance := 0
	if p.MinOperatingYears != nil && age < *p.MinOperatingYears {
		distance = *p.MinOperatingYears - age
	}
	if p.MaxOperatingYears != nil && age > *p.MaxOperatingYears {
		distance = age - *p.MaxOperatingYears
	}
	return stepDecay(distance), true
}

var nationwide = []string{"전국", "전지역", "nationwide"}

func region(in *input) (float64, bool) {
	regions := classify.Terms(in.program.Regions)
	if len(regions) == 0 {
		return 1, false
	}
	for _, r := range regions {
		for _, n := range nationwide {
			if classify.Compact(r) == n {
				return 1, false
			}
		}
	}
	if strings.TrimSpace(in.org.Region) == "" {
		return neutral, false
	}
	for _, r := range regions {
		if classify.SameRegion(in.org.Region, r) {
			return 1, true
		}
	}
	return 0, true
}

// certifications gives required certifications most of the weight. Preferred
// ones only add to it.
func certifications(in *input) (float64, bool) {
	required := classify.Terms(in.program.RequiredCertifications)
	preferred := classify.Terms(in.program.PreferredCertifications)
	if len(required) == 0 && len(preferred) == 0 {
		return 1, false
	}
	held := classify.Terms(in.org.AllCertifications())
	if len(held) == 0 {
		return neutral, false
	}

	switch {
	case len(required) > 0 && len(preferred) > 0:
		return 0.8*heldShare(held, required) + 0.2*heldShare(held, preferred), true
	case len(required) > 0:
		return heldShare(held, required), true
	default:
		return 0.6 + 0.4*heldShare(held, preferred), true
	}
}

func businessType(in *input) (float64, bool) {
	allowed := in.program.AllowedBusinessStructures
	if len(allowed) == 0 {
		return 1, false
	}
	if in.org.BusinessStructure == "" {
		return neutral, false
	}
	for _, s := range allowed {
		if s == in.org.BusinessStructure {
			return 1, true
		}
	}
	return 0, true
}

func lifecycle(in *input) (float64, bool) {
	targets := in.program.TargetLifecycleStages
	if len(targets) == 0 {
		return 1, false
	}
	stage, ok := in.org.Lifecycle(in.now)
	if !ok {
		return neutral, false
	}

	distance := -1
	for _, target := range targets {
		if target.Rank() < 0 {
			continue
		}
		d := abs(target.Rank() - stage.Rank())
		if distance < 0 || d < distance {
			distance = d
		}
	}
	switch distance {
	case 0:
		return 1, true
	case 1:
		return 0.4, true
	case -1:
		return neutral, false
	default:
		return 0, true
	}
}

// industryRelevance blends the taxonomy match (40%) with how many of the
// organization technologies appear in the program text (60%). Three hits earn
// full keyword credit.
func industryRelevance(in *input) (float64, bool) {
	taxonomy := neutral
	known := in.industry.Industry.Known() && in.orgIndustry.Industry.Known()
	if known {
		taxonomy = 0
		if in.industry.Industry == in.orgIndustry.Industry {
			taxonomy = 1
		}
	}

	terms := classify.Terms(in.org.Technologies())
	if len(terms) == 0 {
		return 0.4*taxonomy + 0.6*neutral, known
	}

	p := in.program
	text := strings.Join(append([]string{p.Title, p.Category, p.Description}, p.Keywords...), " ")
	hits := 0
	for _, term := range terms {
		if classify.ContainsTerm(text, term) {
			hits++
		}
	}
	coverage := float64(hits) / float64(min(len(terms), 3))
	return 0.4*taxonomy + 0.6*min(coverage, 1), true
}

const (
	urgentWithin  = 7
	relevantUntil = 90
	missedWithin  = 30
	missedUntil   = 365
)

// deadlineUrgency is full within a week of the deadline and fades to zero at
// 90 days out. Past deadlines score zero unless the mode is historical, where
// recently missed calls score by recency.
func deadlineUrgency(in *input) (float64, bool) {
	if in.program.Deadline == nil || in.now.IsZero() {
		return 0, false
	}
	days := in.program.Deadline.Sub(in.now).Hours() / 24

	if days < 0 {
		if in.mode != ModeHistorical {
			return 0, true
		}
		return fade(-days, missedWithin, missedUntil), true
	}
	return fade(days, urgentWithin, relevantUntil), true
}

// financialRelevance checks a required private investment against what the
// organization raised and the program budget against its revenue, since the
// matching contribution grows with the budget.
func financialRelevance(in *input) (float64, bool) {
	p := in.program
	budget, budgetKnown := budgetFit(p.BudgetAmount, in.org.RevenueRange)
	if p.RequiredInvestment == nil {
		return budget, budgetKnown
	}

	investment := neutral
	investmentKnown := in.org.InvestmentAmount != nil
	if investmentKnown {
		switch required, raised := *p.RequiredInvestment, *in.org.InvestmentAmount; {
		case raised >= required:
			investment = 1
		case raised >= required/2:
			investment = 0.5
		default:
			investment = 0
		}
	}
	return 0.6*investment + 0.4*budget, investmentKnown || budgetKnown
}

func budgetFit(budget *int64, bucket funding.RevenueBucket) (float64, bool) {
	if budget == nil {
		return neutral, false
	}
	_, hi, ok := bucket.Range()
	if !ok {
		return neutral, false
	}
	switch {
	case *budget <= hi:
		return 1, true
	case *budget/3 <= hi:
		return 0.6, true
	default:
		return 0.2, true
	}
}

func supportType(in *input) (float64, bool) {
	offered := classify.Terms(in.program.SupportTypes)
	wanted := classify.Terms(in.org.PreferredSupportTypes)
	if len(offered) == 0 || len(wanted) == 0 {
		return neutral, false
	}
	for _, w := range wanted {
		for _, o := range offered {
			if classify.TermsOverlap(w, o) {
				return 1, true
			}
		}
	}
	return 0, true
}

// rangeFit gives full credit when the bucket overlaps the declared range and
// half credit when it misses by less than a factor of two. Integer math only.
// An inverted range is a broken extraction and counts as unknown.
func rangeFit(lo, hi int64, minV, maxV *int64) (float64, bool) {
	if minV != nil && maxV != nil && *minV > *maxV {
		return neutral, false
	}
	switch {
	case minV != nil && hi < *minV:
		if hi >= *minV/2 {
			return 0.5, true
		}
		return 0, true
	case maxV != nil && lo > *maxV:
		if lo/2 <= *maxV {
			return 0.5, true
		}
		return 0, true
	default:
		return 1, true
	}
}

func heldShare(held, wanted []string) float64 {
	count := 0
	for _, w := range wanted {
		for _, h := range held {
			if classify.TermsOverlap(h, w) {
				count++
				break
			}
		}
	}
	return float64(count) / float64(len(wanted))
}

// stepDecay maps an ordinal distance to credit. Negative means unknown.
func stepDecay(distance int) float64 {
	switch {
	case distance < 0:
		return neutral
	case distance == 0:
		return 1
	case distance == 1:
		return 0.5
	case distance == 2:
		return 0.2
	default:
		return 0
	}
}

// fade is 1 up to full, 0 from zero on and linear in between.
func fade(v, full, zero float64) float64 {
	switch {
	case v <= full:
		return 1
	case v >= zero:
		return 0
	default:
		return (zero - v) / (zero - full)
	}
}

func widen(v *int) *int64 {
	if v == nil {
		return nil
	}
	w := int64(*v)
	return &w
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
