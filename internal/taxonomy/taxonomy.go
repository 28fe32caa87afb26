// Package taxonomy defines the category taxonomy used to label tickets.
//
// A taxonomy is an ordered list of categories, each with a keyword set and
// regex pattern set for rule-based scoring. Order is significant: earlier
// categories win score ties, so the order declared here (or in a taxonomy
// file) is the priority order, not an accident of map iteration.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Fallback is the reserved category for tickets nothing else matched.
// It exists in every taxonomy and never carries matching rules.
const Fallback = "general_query"

// Sentinel errors.
var (
	// ErrEmptyTaxonomy indicates a taxonomy with no categories.
	ErrEmptyTaxonomy = errors.New("taxonomy has no categories")

	// ErrInvalidCategory indicates a malformed category definition.
	ErrInvalidCategory = errors.New("invalid category definition")
)

// Category is one taxonomy entry.
type Category struct {
	// Name is the snake_case label returned by the categorizer.
	Name string

	// Keywords each add 1 to the category score when present in the ticket.
	Keywords []string

	// Patterns each add 2 to the category score when they match.
	Patterns []*regexp.Regexp

	// Example is one canonical ticket sentence for this category, used by
	// the embedding-similarity fallback. Optional.
	Example string
}

// Taxonomy is an immutable, ordered set of categories.
type Taxonomy struct {
	categories []Category
	index      map[string]int
}

// New builds a taxonomy from categories in priority order.
func New(categories []Category) (*Taxonomy, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyTaxonomy
	}

	index := make(map[string]int, len(categories))
	for i, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrInvalidCategory, i)
		}
		if c.Name != Normalize(c.Name) {
			return nil, fmt.Errorf("%w: name %q is not snake_case", ErrInvalidCategory, c.Name)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidCategory, c.Name)
		}
		index[c.Name] = i
	}

	return &Taxonomy{categories: categories, index: index}, nil
}

// Categories returns the categories in priority order.
// Callers must not mutate the returned slice.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// Contains reports whether name is a valid label in this taxonomy.
// The fallback label is always valid.
func (t *Taxonomy) Contains(name string) bool {
	if name == Fallback {
		return true
	}
	_, ok := t.index[name]
	return ok
}

// Match resolves a free-form label (e.g. a provider answer) to a taxonomy
// entry. It normalizes the label, then accepts an exact match or the closest
// fuzzy match with similarity >= 0.7. Returns the resolved name and whether
// a match was found.
func (t *Taxonomy) Match(label string) (string, bool) {
	normalized := Normalize(label)
	if normalized == "" {
		return "", false
	}
	if t.Contains(normalized) {
		return normalized, true
	}

	best := ""
	bestScore := 0.0
	for _, c := range t.categories {
		score := similarity(normalized, c.Name)
		if score > bestScore {
			best = c.Name
			bestScore = score
		}
	}
	if bestScore >= 0.7 {
		return best, true
	}
	return "", false
}

// Normalize converts a label to the taxonomy naming convention:
// lowercase, trimmed, spaces and dashes replaced with underscores.
func Normalize(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	label = strings.Trim(label, `"'.`)
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "-", "_")
	return label
}

// similarity computes a Levenshtein-based ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1.0 - float64(prev[lb])/float64(maxLen)
}

// fileSpec is the YAML shape of a taxonomy file.
type fileSpec struct {
	Categories []categorySpec `koanf:"categories"`
}

type categorySpec struct {
	Name     string   `koanf:"name"`
	Keywords []string `koanf:"keywords"`
	Patterns []string `koanf:"patterns"`
	Example  string   `koanf:"example"`
}

// Load reads a taxonomy from a YAML file.
//
// File shape:
//
//	categories:
//	  - name: login_issue
//	    keywords: [login, password]
//	    patterns: ["login.*fail"]
//	    example: "Cannot login with my credentials"
func Load(path string) (*Taxonomy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file: %w", err)
	}
	return Parse(content)
}

// Parse builds a taxonomy from YAML bytes.
func Parse(content []byte) (*Taxonomy, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing taxonomy yaml: %w", err)
	}

	var spec fileSpec
	if err := k.Unmarshal("", &spec); err != nil {
		return nil, fmt.Errorf("unmarshaling taxonomy: %w", err)
	}

	categories := make([]Category, 0, len(spec.Categories))
	for _, cs := range spec.Categories {
		c := Category{
			Name:     cs.Name,
			Keywords: cs.Keywords,
			Example:  cs.Example,
		}
		for _, p := range cs.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: category %q pattern %q: %v", ErrInvalidCategory, cs.Name, p, err)
			}
			c.Patterns = append(c.Patterns, re)
		}
		categories = append(categories, c)
	}

	return New(categories)
}
