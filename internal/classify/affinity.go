package classify

import (
	"fmt"
	"math"
)

// AffinityEntry is one configured industry pair. Entries are read from the
// eligibility.affinity config list.
type AffinityEntry struct {
	From  Industry `mapstructure:"from" yaml:"from"`
	To    Industry `mapstructure:"to" yaml:"to"`
	Score float64  `mapstructure:"score" yaml:"score"`
}

type affinityKey struct {
	from, to Industry
}

// AffinityTable scores how related two industries are. Identical industries
// score 1, configured pairs score their value in both directions and anything
// else scores 0. Pairs involving GENERAL or an empty industry are unknown.
type AffinityTable struct {
	scores map[affinityKey]float64
}

func NewAffinityTable(entries []AffinityEntry) (*AffinityTable, error) {
	table := &AffinityTable{scores: make(map[affinityKey]float64, len(entries)*2)}
	for idx, entry := range entries {
		if !entry.From.Known() || !entry.To.Known() {
			return nil, fmt.Errorf("affinity entry %d: both industries must be concrete, got %q and %q", idx, entry.From, entry.To)
		}
		if entry.From == entry.To {
			return nil, fmt.Errorf("affinity entry %d: %s is always 1 with itself", idx, entry.From)
		}
		if math.IsNaN(entry.Score) || entry.Score < 0 || entry.Score > 1 {
			return nil, fmt.Errorf("affinity entry %d: score %v is outside [0,1]", idx, entry.Score)
		}
		key := affinityKey{from: entry.From, to: entry.To}
		if _, dup := table.scores[key]; dup {
			return nil, fmt.Errorf("affinity entry %d: %s/%s configured twice", idx, entry.From, entry.To)
		}
		table.scores[key] = entry.Score
		table.scores[affinityKey{from: entry.To, to: entry.From}] = entry.Score
	}
	return table, nil
}

// Affinity returns the relatedness of a and b and whether it is known.
func (t *AffinityTable) Affinity(a, b Industry) (float64, bool) {
	if !a.Known() || !b.Known() {
		return 0, false
	}
	if a == b {
		return 1, true
	}
	if t == nil {
		return 0, true
	}
	return t.scores[affinityKey{from: a, to: b}], true
}
