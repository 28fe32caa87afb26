package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/resolvd/internal/kb"
)

func TestComposeEmptyInputs(t *testing.T) {
	block := New(0).Compose(nil, "")
	assert.True(t, block.Empty())
	assert.Empty(t, block.Text())
}

func TestComposeKBOnly(t *testing.T) {
	block := New(0).Compose([]kb.Passage{
		{Content: "Restart the service.", Source: "runbook.md"},
		{Content: "Check the error log under /var/log.", Source: "faq.md"},
	}, "")

	require.Len(t, block.Snippets, 2)
	assert.Equal(t, "kb", block.Snippets[0].Source)
	assert.Contains(t, block.Text(), "[1] (kb) Restart the service.")
	assert.Contains(t, block.Text(), "[2] (kb) Check the error log")
	assert.NotContains(t, block.Text(), webHeading)
}

func TestComposeWebSummaryLast(t *testing.T) {
	block := New(0).Compose([]kb.Passage{
		{Content: "Restart the service."},
	}, "Known issue, fixed in v2.1.")

	require.Len(t, block.Snippets, 2)
	assert.Equal(t, "web", block.Snippets[1].Source)

	text := block.Text()
	kbIdx := strings.Index(text, "[1] (kb)")
	webIdx := strings.Index(text, webHeading)
	require.GreaterOrEqual(t, kbIdx, 0)
	require.Greater(t, webIdx, kbIdx)
	assert.Contains(t, text, "Known issue, fixed in v2.1.")
}

func TestComposeWebOnly(t *testing.T) {
	block := New(0).Compose(nil, "Only the web knows.")
	require.Len(t, block.Snippets, 1)
	assert.Equal(t, "web", block.Snippets[0].Source)
	assert.True(t, strings.HasPrefix(block.Text(), webHeading))
}

func TestComposeCapsPassageCount(t *testing.T) {
	passages := make([]kb.Passage, 8)
	for i := range passages {
		passages[i] = kb.Passage{Content: "passage content"}
	}

	block := New(0).Compose(passages, "")
	assert.Len(t, block.Snippets, maxPassages)
	assert.NotContains(t, block.Text(), "[6]")
}

func TestComposeTruncatesPassages(t *testing.T) {
	long := strings.Repeat("x", 2000)
	block := New(0).Compose([]kb.Passage{{Content: long}}, "")

	require.Len(t, block.Snippets, 1)
	assert.LessOrEqual(t, len([]rune(block.Snippets[0].Content)), passageLimit)
}

func TestComposeSkipsBlankPassages(t *testing.T) {
	block := New(0).Compose([]kb.Passage{
		{Content: "   "},
		{Content: "real content"},
	}, "")

	require.Len(t, block.Snippets, 1)
	assert.Contains(t, block.Text(), "[1] (kb) real content")
}

func TestComposeBoundsTotalLength(t *testing.T) {
	long := strings.Repeat("word ", 200)
	passages := make([]kb.Passage, 8)
	for i := range passages {
		passages[i] = kb.Passage{Content: long}
	}

	for _, maxChars := range []int{100, 500, DefaultMaxChars} {
		block := New(maxChars).Compose(passages, long)
		assert.LessOrEqual(t, len([]rune(block.Text())), maxChars)
	}
}

func TestComposeCollapsesWhitespace(t *testing.T) {
	block := New(0).Compose([]kb.Passage{
		{Content: "line one\n\n   line    two"},
	}, "")
	assert.Contains(t, block.Text(), "line one line two")
}

func TestNewDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxChars, New(0).MaxChars())
	assert.Equal(t, 250, New(250).MaxChars())
}
