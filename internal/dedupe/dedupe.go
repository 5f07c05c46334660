package dedupe

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/funding"
)

const DefaultThreshold = 0.85

// Options is decoded from the duplicates config section.
type Options struct {
	Threshold             float64 `mapstructure:"threshold"`
	EnableExternalIDMatch bool    `mapstructure:"external-id-match"`
}

func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("duplicate threshold %v is outside [0,1]", o.Threshold)
	}
	return nil
}

// Evidence is one link that put two programs in the same group. Title links
// form a spanning forest of the group; shared external ids are always listed.
type Evidence struct {
	A                string  `json:"a"`
	B                string  `json:"b"`
	TitleSimilarity  float64 `json:"titleSimilarity"`
	SharedExternalID string  `json:"sharedExternalId,omitempty"`
}

type DuplicateGroup struct {
	Representative string     `json:"representative"`
	ProgramIDs     []string   `json:"programIds"`
	Evidence       []Evidence `json:"evidence"`
}

// repostMarkers are dropped before comparing titles since a reposted call is
// the same announcement.
var repostMarkers = []string{"재공고", "수정공고", "정정공고", "변경공고", "연장공고"}

type link struct {
	member   int
	evidence Evidence
}

type entry struct {
	program    *funding.Program
	bigrams    []uint64
	externalID string
}

// DetectDuplicates groups programs whose title bigram Jaccard similarity is at
// least the threshold, or that share a normalized external id when enabled.
// Groups are the transitive closure of those links, so the result does not
// depend on input order.
func DetectDuplicates(programs []*funding.Program, opts Options) []DuplicateGroup {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}

	entries := make([]entry, 0, len(programs))
	for _, p := range programs {
		if p == nil {
			continue
		}
		entries = append(entries, entry{
			program:    p,
			bigrams:    bigrams(titleKey(p.Title)),
			externalID: classify.Compact(p.ExternalID),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].program.ID < entries[j].program.ID
	})

	sets := newUnionFind(len(entries))
	var links []link

	// Jaccard is bounded by the size ratio, so pairs are only compared while
	// the smaller set is large enough to reach the threshold.
	bySize := make([]int, len(entries))
	for i := range bySize {
		bySize[i] = i
	}
	sort.SliceStable(bySize, func(i, j int) bool {
		return len(entries[bySize[i]].bigrams) < len(entries[bySize[j]].bigrams)
	})
	for x, i := range bySize {
		small := len(entries[i].bigrams)
		if small == 0 {
			continue
		}
		for _, j := range bySize[x+1:] {
			if float64(small) < threshold*float64(len(entries[j].bigrams)) {
				break
			}
			// Pairs already grouped add nothing; evidence is the spanning
			// links only, which keeps big clusters of reposts linear.
			if sets.find(i) == sets.find(j) {
				continue
			}
			sim := jaccard(entries[i].bigrams, entries[j].bigrams)
			if sim >= threshold && sets.union(i, j) {
				links = append(links, link{member: i, evidence: newEvidence(entries[i], entries[j], sim, "")})
			}
		}
	}

	if opts.EnableExternalIDMatch {
		first := make(map[string]int)
		for i, e := range entries {
			if e.externalID == "" {
				continue
			}
			j, seen := first[e.externalID]
			if !seen {
				first[e.externalID] = i
				continue
			}
			sets.union(j, i)
			sim := jaccard(entries[j].bigrams, entries[i].bigrams)
			links = append(links, link{member: i, evidence: newEvidence(entries[j], entries[i], sim, e.externalID)})
		}
	}

	members := make(map[int][]int)
	for i := range entries {
		root := sets.find(i)
		members[root] = append(members[root], i)
	}

	groups := make([]DuplicateGroup, 0)
	byRoot := make(map[int]int)
	for root, idx := range members {
		if len(idx) < 2 {
			continue
		}
		group := DuplicateGroup{Evidence: []Evidence{}}
		best := idx[0]
		for _, i := range idx {
			group.ProgramIDs = append(group.ProgramIDs, entries[i].program.ID)
			if moreComplete(entries[i].program, entries[best].program) {
				best = i
			}
		}
		sort.Strings(group.ProgramIDs)
		group.Representative = entries[best].program.ID
		byRoot[root] = len(groups)
		groups = append(groups, group)
	}

	seen := make(map[[2]string]int, len(links))
	for _, l := range links {
		g, ok := byRoot[sets.find(l.member)]
		if !ok {
			continue
		}
		pair := [2]string{l.evidence.A, l.evidence.B}
		if at, dup := seen[pair]; dup {
			if l.evidence.SharedExternalID != "" {
				groups[g].Evidence[at].SharedExternalID = l.evidence.SharedExternalID
			}
			continue
		}
		seen[pair] = len(groups[g].Evidence)
		groups[g].Evidence = append(groups[g].Evidence, l.evidence)
	}

	for g := range groups {
		sort.Slice(groups[g].Evidence, func(i, j int) bool {
			a, b := groups[g].Evidence[i], groups[g].Evidence[j]
			if a.A != b.A {
				return a.A < b.A
			}
			return a.B < b.B
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative < groups[j].Representative
	})
	return groups
}

// TitleSimilarity is the bigram Jaccard similarity of two titles.
func TitleSimilarity(a, b string) float64 {
	return jaccard(bigrams(titleKey(a)), bigrams(titleKey(b)))
}

func titleKey(title string) string {
	key := classify.Compact(title)
	for _, marker := range repostMarkers {
		key = strings.ReplaceAll(key, marker, "")
	}
	return key
}

// bigrams returns the sorted distinct rune bigrams of s. A single rune is its
// own gram so one-character titles can still match.
func bigrams(s string) []uint64 {
	runes := []rune(s)
	switch len(runes) {
	case 0:
		return nil
	case 1:
		return []uint64{uint64(runes[0])}
	}

	seen := make(map[uint64]struct{}, len(runes))
	grams := make([]uint64, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		g := uint64(runes[i])<<32 | uint64(runes[i+1])
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		grams = append(grams, g)
	}
	sort.Slice(grams, func(i, j int) bool { return grams[i] < grams[j] })
	return grams
}

func jaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func newEvidence(x, y entry, sim float64, externalID string) Evidence {
	a, b := x.program.ID, y.program.ID
	if b < a {
		a, b = b, a
	}
	return Evidence{A: a, B: b, TitleSimilarity: math.Round(sim*1000) / 1000, SharedExternalID: externalID}
}

// completeness counts the scheduling and budget fields a program carries.
func completeness(p *funding.Program) int {
	n := 0
	if p.Deadline != nil {
		n++
	}
	if p.ApplicationStart != nil {
		n++
	}
	if p.BudgetAmount != nil {
		n++
	}
	return n
}

func moreComplete(a, b *funding.Program) bool {
	ca, cb := completeness(a), completeness(b)
	if ca != cb {
		return ca > cb
	}
	return a.ID < b.ID
}
