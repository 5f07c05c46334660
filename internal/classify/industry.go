package classify

import (
	"fmt"
	"math"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/spigell/rnd-matcher/internal/funding"
)

const (
	ministryConfidence = 0.9
	titleHitWeight     = 2
	bodyHitWeight      = 1
)

// IndustryResult is the outcome of classifying a program or sector.
type IndustryResult struct {
	Industry        Industry `json:"industry"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matchedKeywords"`
	MinistryBased   bool     `json:"ministryBased"`
	TaxonomyVersion string   `json:"taxonomyVersion"`
}

// Fallback reports whether the result landed in the GENERAL bucket.
func (r IndustryResult) Fallback() bool {
	return !r.Industry.Known()
}

type keywordOwner struct {
	category int
	keyword  string
}

// IndustryClassifier assigns taxonomy buckets with a single Aho-Corasick pass
// over the normalized text.
type IndustryClassifier struct {
	taxonomy *Taxonomy
	patterns []string
	owners   []keywordOwner
	aliases  map[string]Industry

	// Matchers keep per-call state, so each goroutine borrows its own.
	pool sync.Pool
}

func NewIndustryClassifier(taxonomy *Taxonomy) (*IndustryClassifier, error) {
	if taxonomy == nil {
		return nil, fmt.Errorf("taxonomy is required")
	}
	if err := taxonomy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", taxonomy.Version, err)
	}

	c := &IndustryClassifier{
		taxonomy: taxonomy,
		aliases:  make(map[string]Industry),
	}

	for idx, category := range taxonomy.Categories {
		for _, kw := range category.Keywords {
			pattern := kw
			if isASCII(kw) {
				pattern = " " + kw + " "
			}
			c.patterns = append(c.patterns, pattern)
			c.owners = append(c.owners, keywordOwner{category: idx, keyword: kw})
		}
		c.aliases[Compact(string(category.Industry))] = category.Industry
		c.aliases[Compact(category.Label)] = category.Industry
		for _, alias := range category.Aliases {
			if _, taken := c.aliases[Compact(alias)]; !taken {
				c.aliases[Compact(alias)] = category.Industry
			}
		}
	}

	patterns := c.patterns
	c.pool.New = func() any {
		return ahocorasick.NewStringMatcher(patterns)
	}
	return c, nil
}

var (
	defaultClassifierOnce sync.Once
	defaultClassifier     *IndustryClassifier
)

// DefaultIndustryClassifier returns a shared classifier over DefaultTaxonomy.
func DefaultIndustryClassifier() *IndustryClassifier {
	defaultClassifierOnce.Do(func() {
		c, err := NewIndustryClassifier(DefaultTaxonomy())
		if err != nil {
			panic(fmt.Sprintf("default taxonomy: %v", err))
		}
		defaultClassifier = c
	})
	return defaultClassifier
}

func (c *IndustryClassifier) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Classify assigns an industry to a program text. A dedicated ministry wins
// over keyword evidence and is flagged with MinistryBased.
func (c *IndustryClassifier) Classify(title, description, ministry string) IndustryResult {
	keywordResult := c.classifyText(title, description)

	industry, ok := c.taxonomy.MinistryIndustry(ministry)
	if !ok {
		return keywordResult
	}

	result := IndustryResult{
		Industry:        industry,
		Confidence:      ministryConfidence,
		MatchedKeywords: []string{},
		MinistryBased:   true,
		TaxonomyVersion: c.taxonomy.Version,
	}
	if keywordResult.Industry == industry {
		result.Confidence = 1
		result.MatchedKeywords = keywordResult.MatchedKeywords
	}
	return result
}

// ClassifyProgram classifies a program using its title, ministry and the
// category, keyword and description fields as body text.
func (c *IndustryClassifier) ClassifyProgram(p *funding.Program) IndustryResult {
	if p == nil {
		return c.general()
	}
	body := make([]string, 0, len(p.Keywords)+2)
	body = append(body, p.Category)
	body = append(body, p.Keywords...)
	body = append(body, p.Description)
	return c.Classify(p.Title, strings.Join(body, " "), p.Ministry)
}

// ClassifySector maps an organization sector name onto the taxonomy. Exact
// codes, labels and aliases win; otherwise the sector text is keyword matched.
func (c *IndustryClassifier) ClassifySector(sector string) IndustryResult {
	key := Compact(sector)
	if key == "" {
		return c.general()
	}
	if industry, ok := c.aliases[key]; ok {
		return IndustryResult{
			Industry:        industry,
			Confidence:      1,
			MatchedKeywords: []string{},
			TaxonomyVersion: c.taxonomy.Version,
		}
	}
	return c.classifyText(sector, "")
}

func (c *IndustryClassifier) classifyText(title, body string) IndustryResult {
	titleHits := c.match(title)
	bodyHits := c.match(body)
	if len(titleHits) == 0 && len(bodyHits) == 0 {
		return c.general()
	}

	type tally struct {
		score   int
		matched map[int]struct{}
	}
	tallies := make([]tally, len(c.taxonomy.Categories))
	for i := range tallies {
		tallies[i].matched = make(map[int]struct{})
	}

	for _, hit := range titleHits {
		owner := c.owners[hit]
		tallies[owner.category].score += titleHitWeight
		tallies[owner.category].matched[hit] = struct{}{}
	}
	for _, hit := range bodyHits {
		owner := c.owners[hit]
		if _, seen := tallies[owner.category].matched[hit]; seen {
			continue
		}
		tallies[owner.category].score += bodyHitWeight
		tallies[owner.category].matched[hit] = struct{}{}
	}

	best, total := -1, 0
	for idx, t := range tallies {
		total += t.score
		if t.score > 0 && (best < 0 || t.score > tallies[best].score) {
			best = idx
		}
	}
	if best < 0 {
		return c.general()
	}

	matched := make([]string, 0, len(tallies[best].matched))
	for idx, owner := range c.owners {
		if _, ok := tallies[best].matched[idx]; ok {
			matched = append(matched, owner.keyword)
		}
	}

	share := float64(tallies[best].score) / float64(total)
	strength := math.Min(1, 0.4+0.2*float64(len(matched)))

	return IndustryResult{
		Industry:        c.taxonomy.Categories[best].Industry,
		Confidence:      math.Round(share*strength*100) / 100,
		MatchedKeywords: matched,
		TaxonomyVersion: c.taxonomy.Version,
	}
}

func (c *IndustryClassifier) match(text string) []int {
	normalized := Normalize(text)
	if normalized == "" || len(c.patterns) == 0 {
		return nil
	}

	m := c.pool.Get().(*ahocorasick.Matcher)
	defer c.pool.Put(m)
	return m.Match([]byte(" " + normalized + " "))
}

func (c *IndustryClassifier) general() IndustryResult {
	return IndustryResult{
		Industry:        IndustryGeneral,
		MatchedKeywords: []string{},
		TaxonomyVersion: c.taxonomy.Version,
	}
}
