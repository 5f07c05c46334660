package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrWeightsSum is returned when factor maxima do not add up to 100.
var ErrWeightsSum = errors.New("factor maxima must sum to 100")

// Factor names one scoring dimension.
type Factor string

const (
	FactorCompanyScale  Factor = "companyScale"
	FactorRevenue       Factor = "revenueRange"
	FactorEmployees     Factor = "employeeCount"
	FactorBusinessAge   Factor = "businessAge"
	FactorRegion        Factor = "region"
	FactorCertification Factor = "certifications"
	FactorBusinessType  Factor = "businessType"
	FactorLifecycle     Factor = "lifecycleStage"
	FactorIndustry      Factor = "industryRelevance"
	FactorDeadline      Factor = "deadlineUrgency"
	FactorFinancial     Factor = "financialRelevance"
	FactorSupportType   Factor = "supportType"
)

// Factors is the canonical order of every breakdown.
var Factors = []Factor{
	FactorCompanyScale,
	FactorRevenue,
	FactorEmployees,
	FactorBusinessAge,
	FactorRegion,
	FactorCertification,
	FactorBusinessType,
	FactorLifecycle,
	FactorIndustry,
	FactorDeadline,
	FactorFinancial,
	FactorSupportType,
}

var factorLabels = map[Factor]string{
	FactorCompanyScale:  "기업 규모",
	FactorRevenue:       "매출 규모",
	FactorEmployees:     "종업원 수",
	FactorBusinessAge:   "업력",
	FactorRegion:        "지역",
	FactorCertification: "인증",
	FactorBusinessType:  "사업자 유형",
	FactorLifecycle:     "성장 단계",
	FactorIndustry:      "산업·기술 적합도",
	FactorDeadline:      "마감 임박도",
	FactorFinancial:     "재무 적합도",
	FactorSupportType:   "지원 유형",
}

// Label returns the Korean display name of the factor.
func (f Factor) Label() string {
	if label, ok := factorLabels[f]; ok {
		return label
	}
	return string(f)
}

// Weights is a versioned set of factor maxima. It is decoded from the
// scoring.weights config section so experiments do not need a rebuild.
type Weights struct {
	Version       string  `mapstructure:"version" json:"version"`
	CompanyScale  float64 `mapstructure:"company-scale" json:"companyScale"`
	Revenue       float64 `mapstructure:"revenue" json:"revenue"`
	Employees     float64 `mapstructure:"employees" json:"employees"`
	BusinessAge   float64 `mapstructure:"business-age" json:"businessAge"`
	Region        float64 `mapstructure:"region" json:"region"`
	Certification float64 `mapstructure:"certifications" json:"certifications"`
	BusinessType  float64 `mapstructure:"business-type" json:"businessType"`
	Lifecycle     float64 `mapstructure:"lifecycle" json:"lifecycle"`
	Industry      float64 `mapstructure:"industry" json:"industry"`
	Deadline      float64 `mapstructure:"deadline" json:"deadline"`
	Financial     float64 `mapstructure:"financial" json:"financial"`
	SupportType   float64 `mapstructure:"support-type" json:"supportType"`
}

func DefaultWeights() Weights {
	return Weights{
		Version:       "v1",
		CompanyScale:  8,
		Revenue:       6,
		Employees:     6,
		BusinessAge:   6,
		Region:        6,
		Certification: 8,
		BusinessType:  5,
		Lifecycle:     7,
		Industry:      25,
		Deadline:      8,
		Financial:     8,
		SupportType:   7,
	}
}

// Max returns the maximum sub-score of the factor.
func (w Weights) Max(f Factor) float64 {
	switch f {
	case FactorCompanyScale:
		return w.CompanyScale
	case FactorRevenue:
		return w.Revenue
	case FactorEmployees:
		return w.Employees
	case FactorBusinessAge:
		return w.BusinessAge
	case FactorRegion:
		return w.Region
	case FactorCertification:
		return w.Certification
	case FactorBusinessType:
		return w.BusinessType
	case FactorLifecycle:
		return w.Lifecycle
	case FactorIndustry:
		return w.Industry
	case FactorDeadline:
		return w.Deadline
	case FactorFinancial:
		return w.Financial
	case FactorSupportType:
		return w.SupportType
	default:
		return 0
	}
}

// Sum adds up all factor maxima.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, f := range Factors {
		total += w.Max(f)
	}
	return total
}

func (w Weights) Validate() error {
	if strings.TrimSpace(w.Version) == "" {
		return fmt.Errorf("weights version is required")
	}
	for _, f := range Factors {
		m := w.Max(f)
		if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
			return fmt.Errorf("weights %s: %s maximum %v must be a non-negative number", w.Version, f, m)
		}
	}
	if sum := w.Sum(); math.Abs(sum-100) > 1e-6 {
		return fmt.Errorf("weights %s sum to %v: %w", w.Version, sum, ErrWeightsSum)
	}
	return nil
}
