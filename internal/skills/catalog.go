// Package skills serves the predefined skill catalog used for search and
// onboarding suggestions.
package skills

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	MaxSearchResults = 10
	MaxSuggestions   = 20
)

//go:embed catalog.yaml
var catalogFS embed.FS

type Category struct {
	Name   string   `yaml:"name" json:"name"`
	Skills []string `yaml:"skills" json:"skills"`
}

// Catalog is an ordered, duplicate-free list of skill labels
type Catalog struct {
	categories []Category
	all        []string
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

// Parse builds a catalog from YAML. Labels are trimmed; blanks and repeats
// are dropped, keeping the first occurrence.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skill catalog: %w", err)
	}

	c := &Catalog{}
	seen := make(map[string]struct{})
	for _, cat := range f.Categories {
		kept := Category{Name: strings.TrimSpace(cat.Name)}
		for _, s := range cat.Skills {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			kept.Skills = append(kept.Skills, s)
			c.all = append(c.all, s)
		}
		if len(kept.Skills) > 0 {
			c.categories = append(c.categories, kept)
		}
	}
	if len(c.all) == 0 {
		return nil, errors.New("skill catalog is empty")
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		raw, err := catalogFS.ReadFile("catalog.yaml")
		if err != nil {
			defaultErr = err
			return
		}
		defaultCatalog, defaultErr = Parse(raw)
	})
	return defaultCatalog, defaultErr
}

func (c *Catalog) All() []string {
	out := make([]string, len(c.all))
	copy(out, c.all)
	return out
}

func (c *Catalog) Categories() []Category {
	return c.categories
}

// Search returns up to MaxSearchResults labels containing q, ignoring case.
// A blank query matches nothing.
func (c *Catalog) Search(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []string{}
	if q == "" {
		return out
	}
	for _, s := range c.all {
		if strings.Contains(strings.ToLower(s), q) {
			out = append(out, s)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}

// Suggestions returns up to MaxSuggestions labels not in current. The
// comparison is exact, matching how labels are compared for scoring.
func (c *Catalog) Suggestions(current []string) []string {
	have := make(map[string]struct{}, len(current))
	for _, s := range current {
		have[s] = struct{}{}
	}
	out := []string{}
	for _, s := range c.all {
		if _, ok := have[s]; ok {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
