package funding

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// ExcludedPrograms is the exclude file: programs the organization has already
// applied to or decided to skip.
type ExcludedPrograms struct {
	Items []*ExcludedProgram `json:"items"`
}

type ExcludedProgram struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Agency     string    `json:"agency,omitempty"`
	ExcludedAt time.Time `json:"excludedAt"`
}

// ToExcluded converts programs into exclude file entries stamped with at.
func (p *Programs) ToExcluded(at time.Time) *ExcludedPrograms {
	excluded := &ExcludedPrograms{Items: make([]*ExcludedProgram, 0, len(p.Items))}
	for _, program := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedProgram{
			ID:         program.ID,
			Title:      program.Title,
			Agency:     program.Agency,
			ExcludedAt: at.UTC(),
		})
	}
	return excluded
}

// LoadExcluded reads an exclude file. A missing or empty file is an empty
// list so the first append can create it.
func LoadExcluded(path string) (*ExcludedPrograms, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedPrograms{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return &ExcludedPrograms{}, nil
	}

	var excluded ExcludedPrograms
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose id is not in the list yet.
func (e *ExcludedPrograms) Append(other *ExcludedPrograms) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedPrograms) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedPrograms) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
