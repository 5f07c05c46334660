package funding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadPrograms reads a list of programs from a JSON or YAML file.
func LoadPrograms(path string) (*Programs, error) {
	var items []*Program
	if err := decodeFile(path, &items); err != nil {
		return nil, fmt.Errorf("loading programs: %w", err)
	}

	programs := &Programs{Items: make([]*Program, 0, len(items))}
	for idx, item := range items {
		if item == nil {
			continue
		}
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("loading programs: entry %d has no id", idx)
		}
		programs.Items = append(programs.Items, item)
	}
	return programs, nil
}

// LoadOrganization reads a single organization profile.
func LoadOrganization(path string) (*Organization, error) {
	var org Organization
	if err := decodeFile(path, &org); err != nil {
		return nil, fmt.Errorf("loading organization: %w", err)
	}
	if strings.TrimSpace(org.ID) == "" {
		return nil, fmt.Errorf("loading organization: id is required")
	}
	return &org, nil
}

// LoadOrganizations reads a list of organization profiles.
func LoadOrganizations(path string) ([]*Organization, error) {
	var orgs []*Organization
	if err := decodeFile(path, &orgs); err != nil {
		return nil, fmt.Errorf("loading organizations: %w", err)
	}

	result := orgs[:0]
	for _, org := range orgs {
		if org != nil {
			result = append(result, org)
		}
	}
	return result, nil
}

func decodeFile(path string, v any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported file extension %q", ext)
	}
	return nil
}
