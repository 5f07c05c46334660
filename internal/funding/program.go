package funding

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Program is a government R&D funding announcement.
type Program struct {
	ID                        string              `json:"id" yaml:"id"`
	ExternalID                string              `json:"externalId,omitempty" yaml:"externalId,omitempty"`
	Title                     string              `json:"title" yaml:"title"`
	Agency                    string              `json:"agency,omitempty" yaml:"agency,omitempty"`
	Ministry                  string              `json:"ministry,omitempty" yaml:"ministry,omitempty"`
	Category                  string              `json:"category,omitempty" yaml:"category,omitempty"`
	Keywords                  []string            `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Description               string              `json:"description,omitempty" yaml:"description,omitempty"`
	Status                    ProgramStatus       `json:"status,omitempty" yaml:"status,omitempty"`
	TargetType                []OrganizationType  `json:"targetType,omitempty" yaml:"targetType,omitempty"`
	TargetCompanyScales       []CompanyScale      `json:"targetCompanyScales,omitempty" yaml:"targetCompanyScales,omitempty"`
	TargetLifecycleStages     []LifecycleStage    `json:"targetLifecycleStages,omitempty" yaml:"targetLifecycleStages,omitempty"`
	MinTRL                    *int                `json:"minTrl,omitempty" yaml:"minTrl,omitempty"`
	MaxTRL                    *int                `json:"maxTrl,omitempty" yaml:"maxTrl,omitempty"`
	RequiredCertifications    []string            `json:"requiredCertifications,omitempty" yaml:"requiredCertifications,omitempty"`
	PreferredCertifications   []string            `json:"preferredCertifications,omitempty" yaml:"preferredCertifications,omitempty"`
	MinEmployees              *int                `json:"minEmployees,omitempty" yaml:"minEmployees,omitempty"`
	MaxEmployees              *int                `json:"maxEmployees,omitempty" yaml:"maxEmployees,omitempty"`
	MinRevenue                *int64              `json:"minRevenue,omitempty" yaml:"minRevenue,omitempty"`
	MaxRevenue                *int64              `json:"maxRevenue,omitempty" yaml:"maxRevenue,omitempty"`
	RequiredInvestment        *int64              `json:"requiredInvestment,omitempty" yaml:"requiredInvestment,omitempty"`
	MinOperatingYears         *int                `json:"minOperatingYears,omitempty" yaml:"minOperatingYears,omitempty"`
	MaxOperatingYears         *int                `json:"maxOperatingYears,omitempty" yaml:"maxOperatingYears,omitempty"`
	AllowedBusinessStructures []BusinessStructure `json:"allowedBusinessStructures,omitempty" yaml:"allowedBusinessStructures,omitempty"`
	Regions                   []string            `json:"regions,omitempty" yaml:"regions,omitempty"`
	SupportTypes              []string            `json:"supportTypes,omitempty" yaml:"supportTypes,omitempty"`
	ApplicationStart          *time.Time          `json:"applicationStart,omitempty" yaml:"applicationStart,omitempty"`
	Deadline                  *time.Time          `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	BudgetAmount              *int64              `json:"budgetAmount,omitempty" yaml:"budgetAmount,omitempty"`
	ClassificationConfidence  Confidence          `json:"classificationConfidence,omitempty" yaml:"classificationConfidence,omitempty"`
}

// Programs is an ordered set of announcements.
type Programs struct {
	Items []*Program
}

func (p *Programs) Len() int {
	return len(p.Items)
}

func (p *Programs) FindByID(id string) *Program {
	for _, program := range p.Items {
		if program.ID == id {
			return program
		}
	}
	return nil
}

func (p *Programs) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, program := range p.Items {
		ids = append(ids, program.ID)
	}
	return ids
}

// ReportByAgency groups programs by "agency (ministry)".
func (p *Programs) ReportByAgency() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, program := range p.Items {
		key := fmt.Sprintf("%s (%s)", program.Agency, program.Ministry)
		report[key] = append(report[key], map[string]string{
			"id":       program.ID,
			"title":    program.Title,
			"category": program.Category,
			"deadline": formatDate(program.Deadline),
			"budget":   formatWon(program.BudgetAmount),
		})
	}

	for key := range report {
		entries := report[key]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i]["id"] < entries[j]["id"] })
	}
	return report
}

func (p *Programs) DumpToTmpFile() (string, error) {
	return DumpToTmpFile("programs_*.json", p.Items)
}

// DumpToTmpFile writes any JSON-serialisable value to a temporary file.
func DumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatWon(amount *int64) string {
	if amount == nil {
		return "-"
	}
	return fmt.Sprintf("%d KRW", *amount)
}
