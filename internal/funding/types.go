package funding

import "math"

type OrganizationType string

const (
	OrgCompany           OrganizationType = "COMPANY"
	OrgResearchInstitute OrganizationType = "RESEARCH_INSTITUTE"
	OrgUniversity        OrganizationType = "UNIVERSITY"
	OrgPublicInstitution OrganizationType = "PUBLIC_INSTITUTION"
)

func (t OrganizationType) Valid() bool {
	switch t {
	case OrgCompany, OrgResearchInstitute, OrgUniversity, OrgPublicInstitution:
		return true
	default:
		return false
	}
}

// CompanyScale is ordered from the smallest to the largest scale.
type CompanyScale string

const (
	ScaleStartup         CompanyScale = "STARTUP"
	ScaleSME             CompanyScale = "SME"
	ScaleMidSized        CompanyScale = "MID_SIZED"
	ScaleLargeEnterprise CompanyScale = "LARGE_ENTERPRISE"
)

// Rank returns the ordinal of the scale or -1 when it is unknown.
func (s CompanyScale) Rank() int {
	switch s {
	case ScaleStartup:
		return 0
	case ScaleSME:
		return 1
	case ScaleMidSized:
		return 2
	case ScaleLargeEnterprise:
		return 3
	default:
		return -1
	}
}

func (s CompanyScale) Valid() bool { return s.Rank() >= 0 }

type EmployeeBucket string

const (
	EmployeesUnder10  EmployeeBucket = "UNDER_10"
	Employees10To49   EmployeeBucket = "FROM_10_TO_49"
	Employees50To99   EmployeeBucket = "FROM_50_TO_99"
	Employees100To299 EmployeeBucket = "FROM_100_TO_299"
	EmployeesOver300  EmployeeBucket = "OVER_300"
)

const maxHeadCount = math.MaxInt32

// Range returns the inclusive head-count range of the bucket.
func (b EmployeeBucket) Range() (lo, hi int, ok bool) {
	switch b {
	case EmployeesUnder10:
		return 0, 9, true
	case Employees10To49:
		return 10, 49, true
	case Employees50To99:
		return 50, 99, true
	case Employees100To299:
		return 100, 299, true
	case EmployeesOver300:
		return 300, maxHeadCount, true
	default:
		return 0, 0, false
	}
}

// Eok is 100 million KRW. All amounts are whole KRW.
const Eok int64 = 100_000_000

type RevenueBucket string

const (
	RevenueUnder1B   RevenueBucket = "UNDER_1B"
	Revenue1BTo10B   RevenueBucket = "FROM_1B_TO_10B"
	Revenue10BTo50B  RevenueBucket = "FROM_10B_TO_50B"
	Revenue50BTo100B RevenueBucket = "FROM_50B_TO_100B"
	RevenueOver100B  RevenueBucket = "OVER_100B"
)

const (
	maxRevenue int64 = math.MaxInt64
	billion    int64 = 10 * Eok
)

// Range returns the inclusive KRW range of the bucket.
func (b RevenueBucket) Range() (lo, hi int64, ok bool) {
	switch b {
	case RevenueUnder1B:
		return 0, billion - 1, true
	case Revenue1BTo10B:
		return billion, 10*billion - 1, true
	case Revenue10BTo50B:
		return 10 * billion, 50*billion - 1, true
	case Revenue50BTo100B:
		return 50 * billion, 100*billion - 1, true
	case RevenueOver100B:
		return 100 * billion, maxRevenue, true
	default:
		return 0, 0, false
	}
}

type BusinessStructure string

const (
	BusinessIndividual  BusinessStructure = "INDIVIDUAL"
	BusinessCorporation BusinessStructure = "CORPORATION"
)

// Confidence describes how reliable extracted eligibility fields are.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

type ProgramStatus string

const (
	StatusActive   ProgramStatus = "ACTIVE"
	StatusClosed   ProgramStatus = "CLOSED"
	StatusArchived ProgramStatus = "ARCHIVED"
)

// LifecycleStage is ordered from pre-founding to mature.
type LifecycleStage string

const (
	StagePreStartup LifecycleStage = "PRE_STARTUP"
	StageEarly      LifecycleStage = "EARLY"
	StageGrowth     LifecycleStage = "GROWTH"
	StageMature     LifecycleStage = "MATURE"
)

func (s LifecycleStage) Rank() int {
	switch s {
	case StagePreStartup:
		return 0
	case StageEarly:
		return 1
	case StageGrowth:
		return 2
	case StageMature:
		return 3
	default:
		return -1
	}
}

// ValidTRL reports whether level is on the 1..9 scale.
func ValidTRL(level *int) bool {
	return level != nil && *level >= 1 && *level <= 9
}
