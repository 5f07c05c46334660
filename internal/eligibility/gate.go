package eligibility

import (
	"fmt"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

const DefaultAffinityThreshold = 0.5

// Config is decoded from the eligibility config section.
type Config struct {
	AffinityThreshold float64                  `mapstructure:"affinity-threshold"`
	Affinity          []classify.AffinityEntry `mapstructure:"affinity"`
	// TitleRules replaces DefaultTitleRules when set.
	TitleRules []TitleRule `mapstructure:"-"`
}

// DefaultConfig has the documented threshold and no configured affinities, so
// only identical industries count as related until the table is populated.
func DefaultConfig() Config {
	return Config{AffinityThreshold: DefaultAffinityThreshold}
}

// GateResult is the verdict for one program and organization pair.
type GateResult struct {
	Passed          bool                    `json:"passed"`
	ApplicationType ApplicationType         `json:"applicationType"`
	BlockReasons    []BlockReason           `json:"blockReasons"`
	Industry        classify.IndustryResult `json:"industry"`

	ticket *Ticket
}

// Blocked reports whether the result carries the reason.
func (r GateResult) Blocked(reason BlockReason) bool {
	for _, got := range r.BlockReasons {
		if got == reason {
			return true
		}
	}
	return false
}

// Ticket returns the scoring ticket of a passing result.
func (r GateResult) Ticket() (Ticket, bool) {
	if !r.Passed || r.ticket == nil {
		return Ticket{}, false
	}
	return *r.ticket, true
}

// Ticket proves that a program passed the gate for an organization. It can
// only be obtained from a passing GateResult.
type Ticket struct {
	program     *funding.Program
	org         *funding.Organization
	industry    classify.IndustryResult
	orgIndustry classify.IndustryResult
}

func (t Ticket) Program() *funding.Program           { return t.program }
func (t Ticket) Organization() *funding.Organization { return t.org }

// Industry is the program classification used by the gate.
func (t Ticket) Industry() classify.IndustryResult { return t.industry }

// OrganizationIndustry is the classification of the organization sector.
func (t Ticket) OrganizationIndustry() classify.IndustryResult { return t.orgIndustry }

// Valid reports whether the ticket came from a gate.
func (t Ticket) Valid() bool { return t.program != nil && t.org != nil }

// Gate holds no mutable state and is safe for concurrent use.
type Gate struct {
	rules      []TitleRule
	classifier *classify.IndustryClassifier
	affinity   *classify.AffinityTable
	threshold  float64
}

func New(classifier *classify.IndustryClassifier, cfg Config) (*Gate, error) {
	if classifier == nil {
		return nil, fmt.Errorf("industry classifier is required")
	}
	if cfg.AffinityThreshold < 0 || cfg.AffinityThreshold > 1 {
		return nil, fmt.Errorf("affinity threshold %v is outside [0,1]", cfg.AffinityThreshold)
	}

	table, err := classify.NewAffinityTable(cfg.Affinity)
	if err != nil {
		return nil, fmt.Errorf("affinity table: %w", err)
	}

	rules := cfg.TitleRules
	if rules == nil {
		rules = DefaultTitleRules
	}
	for idx, rule := range rules {
		if rule.Reason == "" || len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("title rule %d (%s): reason and patterns are required", idx, rule.Name)
		}
	}

	return &Gate{
		rules:      rules,
		classifier: classifier,
		affinity:   table,
		threshold:  cfg.AffinityThreshold,
	}, nil
}

// Evaluate runs every rule and collects block reasons in rule order. Missing
// data never blocks on its own.
func (g *Gate) Evaluate(program *funding.Program, org *funding.Organization) GateResult {
	if program == nil {
		program = &funding.Program{}
	}
	if org == nil {
		org = &funding.Organization{}
	}

	var (
		reasons blockReasons
		appType = ApplicationOpenCompetition
	)
	promote := func(t ApplicationType) {
		if t.priority() > appType.priority() {
			appType = t
		}
	}

	title := classify.Compact(program.Title)
	for _, rule := range g.rules {
		if !rule.Matches(title) {
			continue
		}
		if rule.ApplicationType != "" {
			promote(rule.ApplicationType)
		}
		if rule.AppliesTo(org.Type) {
			reasons.add(rule.Reason)
		}
	}

	if consolidated(program) {
		promote(ApplicationConsolidated)
		reasons.add(ReasonConsolidated)
	}

	if orgTypeMismatch(program, org) {
		reasons.add(ReasonOrgTypeMismatch)
	}

	if trlOutOfRange(program, org) {
		reasons.add(ReasonTRLOutOfRange)
	}

	industry := g.classifier.ClassifyProgram(program)
	orgIndustry := g.classifier.ClassifySector(org.IndustrySector)
	if reason, blocked := g.industryMismatch(program, org, industry, orgIndustry); blocked {
		reasons.add(reason)
	}

	if org.CompanyScaleType == funding.ScaleLargeEnterprise && SMEOnly(program) {
		reasons.add(ReasonSMEScale)
	}

	result := GateResult{
		Passed:          len(reasons) == 0,
		ApplicationType: appType,
		BlockReasons:    reasons.list(),
		Industry:        industry,
	}
	if result.Passed {
		result.ticket = &Ticket{program: program, org: org, industry: industry, orgIndustry: orgIndustry}
	}
	return result
}

func consolidated(p *funding.Program) bool {
	return p.Deadline == nil && p.ApplicationStart == nil && p.BudgetAmount == nil
}

func orgTypeMismatch(p *funding.Program, o *funding.Organization) bool {
	if len(p.TargetType) == 0 || !o.Type.Valid() {
		return false
	}
	for _, t := range p.TargetType {
		if t == o.Type {
			return false
		}
	}
	return true
}

// trlOutOfRange checks each declared bound on its own. A reversed range is
// malformed and does not block.
func trlOutOfRange(p *funding.Program, o *funding.Organization) bool {
	level, ok := o.TRL()
	if !ok {
		return false
	}
	hasMin, hasMax := funding.ValidTRL(p.MinTRL), funding.ValidTRL(p.MaxTRL)
	if hasMin && hasMax && *p.MinTRL > *p.MaxTRL {
		return false
	}
	if hasMin && level < *p.MinTRL {
		return true
	}
	return hasMax && level > *p.MaxTRL
}

// industryMismatch blocks only when both sides classify, their affinity is
// below the threshold and no technology term literally appears among the
// program keywords.
func (g *Gate) industryMismatch(p *funding.Program, o *funding.Organization, programIndustry, orgIndustry classify.IndustryResult) (BlockReason, bool) {
	score, known := g.affinity.Affinity(orgIndustry.Industry, programIndustry.Industry)
	if !known || score >= g.threshold {
		return "", false
	}

	techs := classify.Terms(o.Technologies())
	keywords := classify.Terms(p.Keywords)
	if len(techs) == 0 || len(keywords) == 0 {
		return "", false
	}
	if KeywordOverlap(techs, keywords) > 0 {
		return "", false
	}

	if programIndustry.MinistryBased {
		return ReasonMinistryIndustryMismatch, true
	}
	return ReasonIndustryMismatch, true
}

// KeywordOverlap counts normalized terms of a that also occur in b, ignoring
// spacing differences.
func KeywordOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, term := range b {
		set[classify.Compact(term)] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{}, len(a))
	for _, term := range a {
		key := classify.Compact(term)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			count++
		}
	}
	return count
}

type blockReasons []BlockReason

func (r *blockReasons) add(reason BlockReason) {
	for _, existing := range *r {
		if existing == reason {
			return
		}
	}
	*r = append(*r, reason)
}

func (r blockReasons) list() []BlockReason {
	if r == nil {
		return []BlockReason{}
	}
	return r
}
