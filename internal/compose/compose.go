// Package compose assembles bounded context blocks from retrieved
// knowledge passages and optional web search summaries. Composition is
// pure: no I/O, and missing inputs shrink the output down to an empty
// block instead of failing.
package compose

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/resolvd/internal/kb"
)

const (
	// maxPassages caps how many retrieved passages enter the block.
	maxPassages = 5

	// passageLimit truncates each passage so no single source dominates.
	passageLimit = 320

	// DefaultMaxChars bounds the rendered block; downstream prompts
	// stay small regardless of how much was retrieved.
	DefaultMaxChars = 1000

	// webHeading introduces the web search summary section.
	webHeading = "Web search summary:"
)

// Snippet is one entry of a context block with provenance.
type Snippet struct {
	Content string `json:"content"`
	Source  string `json:"source"` // "kb" or "web"
}

// Block is an ordered, bounded collection of context snippets. KB
// passages come first, the web summary last.
type Block struct {
	Snippets []Snippet `json:"snippets"`
	text     string
}

// Empty reports whether the block carries no context.
func (b Block) Empty() bool {
	return len(b.Snippets) == 0
}

// Text returns the rendered block: numbered KB passages followed by the
// web summary under its own heading. Always within the composer's
// character bound.
func (b Block) Text() string {
	return b.text
}

// Composer builds context blocks with a fixed character budget.
type Composer struct {
	maxChars int
}

// New creates a Composer. maxChars <= 0 selects DefaultMaxChars.
func New(maxChars int) Composer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return Composer{maxChars: maxChars}
}

// MaxChars returns the rendered-text budget.
func (c Composer) MaxChars() int {
	return c.maxChars
}

// Compose merges up to maxPassages knowledge passages and an optional
// web summary into a bounded block.
func (c Composer) Compose(passages []kb.Passage, webSummary string) Block {
	var snippets []Snippet
	var sb strings.Builder

	n := 0
	for _, p := range passages {
		content := clip(p.Content, passageLimit)
		if content == "" {
			continue
		}
		n++
		if n > maxPassages {
			break
		}
		snippets = append(snippets, Snippet{Content: content, Source: "kb"})
		fmt.Fprintf(&sb, "[%d] (kb) %s\n", n, content)
	}

	if summary := clip(webSummary, passageLimit); summary != "" {
		snippets = append(snippets, Snippet{Content: summary, Source: "web"})
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(webHeading)
		sb.WriteByte('\n')
		sb.WriteString(summary)
	}

	text := strings.TrimSpace(sb.String())
	if runes := []rune(text); len(runes) > c.maxChars {
		text = strings.TrimSpace(string(runes[:c.maxChars]))
	}

	return Block{Snippets: snippets, text: text}
}

// clip collapses whitespace and truncates to limit runes.
func clip(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > limit {
		s = strings.TrimSpace(string(runes[:limit]))
	}
	return s
}
