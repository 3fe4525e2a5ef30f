package templates

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed/system_templates.yaml
var embeddedSeeds []byte

// Seed is one system template definition.
type Seed struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	QueryText   string `yaml:"query_text"`
}

type seedFile struct {
	Templates []Seed `yaml:"templates"`
}

// LoadSeeds reads system templates from path, or from the embedded file when path is empty.
func LoadSeeds(path string) ([]Seed, error) {
	data := embeddedSeeds
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read templates file: %w", err)
		}
		data = raw
	}
	return parseSeeds(data)
}

func parseSeeds(data []byte) ([]Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Templates))
	for i, s := range f.Templates {
		s.Name = strings.TrimSpace(s.Name)
		s.Category = strings.ToLower(strings.TrimSpace(s.Category))
		s.QueryText = strings.TrimSpace(s.QueryText)
		s.Description = strings.TrimSpace(s.Description)
		if s.Name == "" || s.QueryText == "" {
			return nil, fmt.Errorf("template %d: name and query_text are required", i)
		}
		if !ValidCategory(s.Category) {
			return nil, fmt.Errorf("template %q: %w %q", s.Name, ErrInvalidCategory, s.Category)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("template %q: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}
		f.Templates[i] = s
	}
	return f.Templates, nil
}
