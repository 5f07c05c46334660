package funding

import "time"

// Organization is a company or institution profile. The engine treats it as
// read-only input owned by the calling layer.
type Organization struct {
	ID                       string            `json:"id" yaml:"id"`
	Name                     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Type                     OrganizationType  `json:"type,omitempty" yaml:"type,omitempty"`
	IndustrySector           string            `json:"industrySector,omitempty" yaml:"industrySector,omitempty"`
	EmployeeCount            EmployeeBucket    `json:"employeeCount,omitempty" yaml:"employeeCount,omitempty"`
	RevenueRange             RevenueBucket     `json:"revenueRange,omitempty" yaml:"revenueRange,omitempty"`
	CompanyScaleType         CompanyScale      `json:"companyScaleType,omitempty" yaml:"companyScaleType,omitempty"`
	BusinessStructure        BusinessStructure `json:"businessStructure,omitempty" yaml:"businessStructure,omitempty"`
	TechnologyReadinessLevel *int              `json:"technologyReadinessLevel,omitempty" yaml:"technologyReadinessLevel,omitempty"`
	Certifications           []string          `json:"certifications,omitempty" yaml:"certifications,omitempty"`
	GovernmentCertifications []string          `json:"governmentCertifications,omitempty" yaml:"governmentCertifications,omitempty"`
	KeyTechnologies          []string          `json:"keyTechnologies,omitempty" yaml:"keyTechnologies,omitempty"`
	ResearchFocusAreas       []string          `json:"researchFocusAreas,omitempty" yaml:"researchFocusAreas,omitempty"`
	Region                   string            `json:"region,omitempty" yaml:"region,omitempty"`
	EstablishedAt            *time.Time        `json:"establishedAt,omitempty" yaml:"establishedAt,omitempty"`
	InvestmentAmount         *int64            `json:"investmentAmount,omitempty" yaml:"investmentAmount,omitempty"`
	PreferredSupportTypes    []string          `json:"preferredSupportTypes,omitempty" yaml:"preferredSupportTypes,omitempty"`
	RDHistory                RDHistory         `json:"rdHistory" yaml:"rdHistory"`
	Description              string            `json:"description,omitempty" yaml:"description,omitempty"`
}

type RDHistory struct {
	HasRDExperience    bool `json:"hasRdExperience" yaml:"hasRdExperience"`
	PastAwardCount     int  `json:"pastAwardCount,omitempty" yaml:"pastAwardCount,omitempty"`
	CollaborationCount int  `json:"collaborationCount,omitempty" yaml:"collaborationCount,omitempty"`
}

// AllCertifications returns private and government certifications together.
func (o *Organization) AllCertifications() []string {
	certs := make([]string, 0, len(o.Certifications)+len(o.GovernmentCertifications))
	certs = append(certs, o.Certifications...)
	return append(certs, o.GovernmentCertifications...)
}

// Technologies returns key technologies followed by research focus areas.
func (o *Organization) Technologies() []string {
	terms := make([]string, 0, len(o.KeyTechnologies)+len(o.ResearchFocusAreas))
	terms = append(terms, o.KeyTechnologies...)
	return append(terms, o.ResearchFocusAreas...)
}

// TRL returns the readiness level when it is on the 1..9 scale.
func (o *Organization) TRL() (int, bool) {
	if !ValidTRL(o.TechnologyReadinessLevel) {
		return 0, false
	}
	return *o.TechnologyReadinessLevel, true
}

// BusinessAge returns the number of full years since establishment at now.
func (o *Organization) BusinessAge(now time.Time) (int, bool) {
	if o.EstablishedAt == nil || o.EstablishedAt.IsZero() || o.EstablishedAt.After(now) {
		return 0, false
	}
	est := o.EstablishedAt.UTC()
	now = now.UTC()
	years := now.Year() - est.Year()
	if now.Month() < est.Month() || (now.Month() == est.Month() && now.Day() < est.Day()) {
		years--
	}
	return years, true
}

// Lifecycle derives the organization stage from its business age.
func (o *Organization) Lifecycle(now time.Time) (LifecycleStage, bool) {
	age, ok := o.BusinessAge(now)
	if !ok {
		return "", false
	}
	switch {
	case age < 3:
		return StageEarly, true
	case age < 7:
		return StageGrowth, true
	default:
		return StageMature, true
	}
}
