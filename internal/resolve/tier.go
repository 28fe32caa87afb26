// Package resolve implements the solution cascade: an ordered list of
// solution tiers tried front to back, halting at the first tier that
// produces usable output. The final template tier cannot fail, so every
// resolution terminates with a response.
package resolve

import (
	"context"

	"github.com/fyrsmithlabs/resolvd/internal/compose"
)

// Quality is a coarse trust label carried on every solution, used by
// callers to trigger manual review of weak answers.
type Quality string

const (
	QualityHigh          Quality = "high"
	QualityMedium        Quality = "medium"
	QualityLow           Quality = "low"
	QualityErrorFallback Quality = "error_fallback"
)

// Source tier labels. Reasoning providers use SourceProvider plus the
// provider name.
const (
	SourceKnowledgeBase  = "knowledge_base"
	SourceWebTemplate    = "web_search_template"
	SourceStaticTemplate = "static_template"
	sourceProviderPrefix = "reasoning_provider_"
)

// Request carries one ticket through the cascade. Immutable during a
// resolution call.
type Request struct {
	// Ticket is the raw support request text.
	Ticket string

	// Category is the resolved taxonomy category.
	Category string

	// Context is the composed knowledge/web context block, possibly empty.
	Context compose.Block
}

// TierResult is a successful tier outcome.
type TierResult struct {
	// Text is the raw solution before formatting.
	Text string

	// Source labels which tier produced the text.
	Source string

	// Quality is the tier's trust level.
	Quality Quality
}

// Tier is one stage of the cascade. Attempt returns (nil, nil) when the
// tier has nothing to contribute; errors advance the cascade the same
// way but are logged and counted.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, req *Request) (*TierResult, error)
}
