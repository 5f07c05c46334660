package classify

import (
	"math"
	"strings"

	"github.com/spigell/rnd-matcher/internal/funding"
)

type CompletenessResult struct {
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing"`
}

type profileField struct {
	name        string
	weight      int
	companyOnly bool
	filled      func(o *funding.Organization) bool
}

// profileFields weights sum to 100 for companies. Company-only fields are left
// out of the denominator for other organization types.
var profileFields = []profileField{
	{name: "name", weight: 5, filled: func(o *funding.Organization) bool { return notBlank(o.Name) }},
	{name: "type", weight: 10, filled: func(o *funding.Organization) bool { return o.Type.Valid() }},
	{name: "industrySector", weight: 10, filled: func(o *funding.Organization) bool { return notBlank(o.IndustrySector) }},
	{name: "employeeCount", weight: 8, filled: func(o *funding.Organization) bool {
		_, _, ok := o.EmployeeCount.Range()
		return ok
	}},
	{name: "revenueRange", weight: 8, filled: func(o *funding.Organization) bool {
		_, _, ok := o.RevenueRange.Range()
		return ok
	}},
	{name: "companyScaleType", weight: 5, companyOnly: true, filled: func(o *funding.Organization) bool { return o.CompanyScaleType.Valid() }},
	{name: "businessStructure", weight: 5, companyOnly: true, filled: func(o *funding.Organization) bool { return o.BusinessStructure != "" }},
	{name: "technologyReadinessLevel", weight: 10, filled: func(o *funding.Organization) bool {
		_, ok := o.TRL()
		return ok
	}},
	{name: "certifications", weight: 5, filled: func(o *funding.Organization) bool { return len(Terms(o.AllCertifications())) > 0 }},
	{name: "keyTechnologies", weight: 10, filled: func(o *funding.Organization) bool { return len(Terms(o.KeyTechnologies)) > 0 }},
	{name: "researchFocusAreas", weight: 5, filled: func(o *funding.Organization) bool { return len(Terms(o.ResearchFocusAreas)) > 0 }},
	{name: "region", weight: 5, filled: func(o *funding.Organization) bool { return notBlank(o.Region) }},
	{name: "establishedAt", weight: 5, filled: func(o *funding.Organization) bool { return o.EstablishedAt != nil && !o.EstablishedAt.IsZero() }},
	{name: "preferredSupportTypes", weight: 5, filled: func(o *funding.Organization) bool { return len(Terms(o.PreferredSupportTypes)) > 0 }},
	{name: "description", weight: 4, filled: func(o *funding.Organization) bool { return notBlank(o.Description) }},
}

// Completeness reports how much of the profile the scorer can use, as a
// weighted percentage, and which fields are missing in declaration order.
func Completeness(org *funding.Organization) CompletenessResult {
	result := CompletenessResult{Missing: []string{}}
	if org == nil {
		for _, field := range profileFields {
			result.Missing = append(result.Missing, field.name)
		}
		return result
	}

	total, filled := 0, 0
	for _, field := range profileFields {
		if field.companyOnly && org.Type != funding.OrgCompany {
			continue
		}
		total += field.weight
		if field.filled(org) {
			filled += field.weight
			continue
		}
		result.Missing = append(result.Missing, field.name)
	}

	if total > 0 {
		result.Percentage = int(math.Round(float64(filled) * 100 / float64(total)))
	}
	return result
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
