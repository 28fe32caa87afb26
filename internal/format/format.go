// Package format normalizes raw solution text into the final response
// shape: whitespace cleanup, line deduplication, URL redaction for
// generative output, length truncation, and a header/trailer wrap.
// Formatting is total: any input string produces a valid response.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// maxBodyLength truncates the solution body before wrapping.
	maxBodyLength = 900

	// urlPlaceholder replaces raw URLs in generative output, which may
	// contain hallucinated links.
	urlPlaceholder = "[link removed]"

	// trailer disclosing automation, appended to every response.
	trailer = "This response was generated automatically. If it does not resolve your issue, please reply so a support agent can follow up."
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// generative quality labels whose raw text gets URL redaction. Curated
// knowledge base and template tiers keep their links.
var generativeQualities = map[string]bool{
	"medium": true,
}

// Format produces the final response text for a solved ticket. category,
// method, and quality label the provenance in the header.
func Format(raw, category, method, quality string) string {
	body := normalize(raw)
	if generativeQualities[quality] {
		body = urlPattern.ReplaceAllString(body, urlPlaceholder)
	}
	body = truncate(body, maxBodyLength)
	if body == "" {
		body = "No further details are available for this request."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[Category: %s | Method: %s | Quality: %s]\n\n", category, method, quality)
	sb.WriteString(body)
	sb.WriteString("\n\n---\n")
	sb.WriteString(trailer)
	return sb.String()
}

// normalize collapses whitespace within each line and removes duplicate
// lines while preserving first-occurrence order.
func normalize(s string) string {
	seen := make(map[string]bool)
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// truncate bounds s to limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
