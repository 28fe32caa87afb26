package resolve

import (
	"context"
	"fmt"
	"strings"
)

// actionVerbs mark lines in retrieved context worth presenting as steps.
var actionVerbs = []string{
	"install", "run", "open", "click", "configure", "login", "set", "publish", "use",
}

// SolutionLookup resolves a category to a curated knowledge base answer.
// Satisfied by kb.Solutions.
type SolutionLookup interface {
	Get(category string) (string, bool)
}

// knowledgeBaseTier returns the curated solution stored for the resolved
// category, verbatim.
type knowledgeBaseTier struct {
	solutions SolutionLookup
}

// NewKnowledgeBaseTier creates the first cascade tier. solutions may be
// nil, making the tier always pass.
func NewKnowledgeBaseTier(solutions SolutionLookup) Tier {
	return &knowledgeBaseTier{solutions: solutions}
}

func (t *knowledgeBaseTier) Name() string { return "knowledge_base" }

func (t *knowledgeBaseTier) Attempt(_ context.Context, req *Request) (*TierResult, error) {
	if t.solutions == nil {
		return nil, nil
	}
	text, ok := t.solutions.Get(req.Category)
	if !ok {
		return nil, nil
	}
	return &TierResult{Text: text, Source: SourceKnowledgeBase, Quality: QualityHigh}, nil
}

// contextTier composes a short answer directly from the retrieved
// context block, without any external call: up to five lines containing
// an action verb become numbered steps, otherwise the leading context
// is summarized.
type contextTier struct{}

// NewContextTier creates the second cascade tier.
func NewContextTier() Tier {
	return &contextTier{}
}

func (t *contextTier) Name() string { return "context" }

func (t *contextTier) Attempt(_ context.Context, req *Request) (*TierResult, error) {
	if req.Context.Empty() {
		return nil, nil
	}

	text := composeFromContext(req.Context.Text(), req.Ticket)
	if text == "" {
		return nil, nil
	}
	return &TierResult{Text: text, Source: SourceWebTemplate, Quality: QualityMedium}, nil
}

func composeFromContext(contextText, ticket string) string {
	var steps []string
	for _, line := range strings.Split(contextText, "\n") {
		line = strings.Trim(line, " -\u2022\t")
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, verb := range actionVerbs {
			if strings.Contains(lower, verb) {
				steps = append(steps, line)
				break
			}
		}
		if len(steps) >= 5 {
			break
		}
	}

	if len(steps) == 0 {
		preview := strings.Join(strings.Fields(contextText), " ")
		if runes := []rune(preview); len(runes) > 280 {
			preview = string(runes[:280])
		}
		if preview == "" {
			return ""
		}
		return "Summary of related knowledge: " + preview
	}

	subject := ticket
	if runes := []rune(subject); len(runes) > 60 {
		subject = string(runes[:60])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on related knowledge, focused steps for %q:\n", subject)
	for i, step := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	sb.WriteString("Refer to the referenced knowledge base articles for full details.")
	return sb.String()
}

// Completer is a reasoning provider used by providerTier. Satisfied by
// provider.Provider.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// providerTier asks one external reasoning provider for a diagnosis and
// numbered steps. Each configured provider becomes its own tier so the
// cascade's ordering covers providers too.
type providerTier struct {
	provider Completer
}

// NewProviderTier creates a cascade tier for one reasoning provider.
func NewProviderTier(p Completer) Tier {
	return &providerTier{provider: p}
}

func (t *providerTier) Name() string { return t.provider.Name() }

func (t *providerTier) Attempt(ctx context.Context, req *Request) (*TierResult, error) {
	prompt := buildSolutionPrompt(req)

	text, err := t.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return &TierResult{
		Text:    text,
		Source:  sourceProviderPrefix + t.provider.Name(),
		Quality: QualityMedium,
	}, nil
}

func buildSolutionPrompt(req *Request) string {
	var sb strings.Builder
	sb.WriteString("You are a support engineer. Analyze and solve the following ticket.\n\n")
	fmt.Fprintf(&sb, "Ticket: %s\n", req.Ticket)
	fmt.Fprintf(&sb, "Category: %s\n", req.Category)
	if !req.Context.Empty() {
		fmt.Fprintf(&sb, "\nRelated knowledge:\n%s\n", req.Context.Text())
	}
	sb.WriteString("\nProvide a concise, actionable solution: a brief diagnosis followed by 3-6 numbered steps. Prefer steps grounded in the related knowledge. No extra disclaimers.")
	return sb.String()
}

// templateTier returns a deterministic category-keyed canned response.
// It is the cascade's terminal guarantee and never fails.
type templateTier struct{}

// NewTemplateTier creates the final cascade tier.
func NewTemplateTier() Tier {
	return &templateTier{}
}

func (t *templateTier) Name() string { return "template" }

func (t *templateTier) Attempt(_ context.Context, req *Request) (*TierResult, error) {
	return &TierResult{
		Text:    templateFor(req.Category, req.Ticket),
		Source:  SourceStaticTemplate,
		Quality: QualityLow,
	}, nil
}
