// Package kb holds the knowledge base: curated per-category solutions
// loaded from YAML, semantic retrieval over ingested passages, and hot
// reload of the solutions file.
package kb

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxSolutionsFileSize caps the solutions YAML to guard against
// accidentally pointing the config at a huge file.
const maxSolutionsFileSize = 4 * 1024 * 1024

// Solutions is a reloadable mapping of category name to a curated
// solution text. Safe for concurrent use; Reload swaps the whole map.
type Solutions struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

type solutionsSpec struct {
	Solutions map[string]string `koanf:"solutions"`
}

// ParseSolutions parses solutions YAML of the form:
//
//	solutions:
//	  login_issue: |
//	    Reset your password from the login page...
func ParseSolutions(data []byte) (map[string]string, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing solutions yaml: %w", err)
	}

	var spec solutionsSpec
	if err := k.Unmarshal("", &spec); err != nil {
		return nil, fmt.Errorf("unmarshaling solutions: %w", err)
	}

	entries := make(map[string]string, len(spec.Solutions))
	for category, text := range spec.Solutions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		entries[category] = text
	}
	return entries, nil
}

// LoadSolutions reads and parses a solutions YAML file. A missing file
// yields an empty store rather than an error so the pipeline can run
// without curated content.
func LoadSolutions(path string) (*Solutions, error) {
	s := &Solutions{path: path, entries: map[string]string{}}
	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the solutions file and atomically replaces the
// in-memory entries.
func (s *Solutions) Reload() error {
	if s.path == "" {
		return nil
	}

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.entries = map[string]string{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat solutions file: %w", err)
	}
	if info.Size() > maxSolutionsFileSize {
		return fmt.Errorf("solutions file too large: %d bytes (max %d)", info.Size(), maxSolutionsFileSize)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading solutions file: %w", err)
	}

	entries, err := ParseSolutions(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Get returns the curated solution for a category, if one exists.
func (s *Solutions) Get(category string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.entries[category]
	return text, ok
}

// Categories returns the categories with curated solutions, sorted.
func (s *Solutions) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for category := range s.entries {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of curated solutions.
func (s *Solutions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Path returns the backing file path, empty when in-memory only.
func (s *Solutions) Path() string {
	return s.path
}
