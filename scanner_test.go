package ejs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(segs []segment) []segmentKind {
	out := make([]segmentKind, len(segs))
	for i, s := range segs {
		out[i] = s.kind
	}
	return out
}

func TestScanKinds(t *testing.T) {
	segs, err := scan(`a<%= x %>b<%- y %>c<%# z %>d<% w %>e`, "%", false)
	require.NoError(t, err)

	assert.Equal(t, []segmentKind{
		segLiteral, segEscaped,
		segLiteral, segRaw,
		segLiteral, segComment,
		segLiteral, segScriptlet,
		segLiteral,
	}, kinds(segs))
	assert.Equal(t, " x ", segs[1].text)
	assert.Equal(t, " w ", segs[7].text)
}

func TestScanLineNumbers(t *testing.T) {
	segs, err := scan("l1\n<% a %>\n<%= b %>", "%", false)
	require.NoError(t, err)
	require.Len(t, segs, 4)

	assert.Equal(t, 1, segs[0].line)
	assert.Equal(t, 2, segs[1].line) // <% a %>
	assert.Equal(t, 3, segs[3].line) // <%= b %>
}

func TestScanSlurpDirectives(t *testing.T) {
	segs, err := scan("a \t<%_ x _%> \n b", "%", false)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.True(t, segs[1].slurpBefore)
	assert.Equal(t, slurpSpace, segs[1].slurpAfter)
	assert.Equal(t, "a", segs[0].text, "leading slurp strips trailing horizontal whitespace")
	assert.Equal(t, " b", segs[2].text, "trailing slurp strips horizontal whitespace and one newline")
}

func TestScanNewlineSlurpStripsExactlyOne(t *testing.T) {
	segs, err := scan("a<% x -%>\n\nb", "%", false)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, slurpNewline, segs[1].slurpAfter)
	assert.Equal(t, "\nb", segs[2].text)
}

func TestScanLiteralDelimiterEscapes(t *testing.T) {
	segs, err := scan("a<%%b%%>c", "%", false)
	require.NoError(t, err)

	assert.Equal(t, []segmentKind{
		segLiteral, segLiteralDelim, segLiteral, segLiteralDelim, segLiteral,
	}, kinds(segs))
	assert.Equal(t, "<%", segs[1].text)
	assert.Equal(t, "%>", segs[3].text)
}

func TestScanDoubledDelimiterNeverOpensTag(t *testing.T) {
	// <%%= must decode to a literal <% followed by plain text.
	segs, err := scan("<%%= x %%>", "%", false)
	require.NoError(t, err)

	assert.Equal(t, []segmentKind{segLiteralDelim, segLiteral, segLiteralDelim}, kinds(segs))
	assert.Equal(t, "= x ", segs[1].text)
}

func TestScanUnterminatedTag(t *testing.T) {
	_, err := scan("a\nb<%= x", "%", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUnterminatedTag)
	assert.Equal(t, 2, ErrorLine(err))
}

func TestScanCustomDelimiter(t *testing.T) {
	segs, err := scan("a<?= .X ?>b", "?", false)
	require.NoError(t, err)

	assert.Equal(t, []segmentKind{segLiteral, segEscaped, segLiteral}, kinds(segs))
	assert.Equal(t, " .X ", segs[1].text)
}

func TestScanTrimWhitespaceMode(t *testing.T) {
	segs, err := scan("  a  \n  b  ", "%", true)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "a\nb", segs[0].text)
}

func TestScanTrimModeSlurpsNewlineAfterTags(t *testing.T) {
	segs, err := scan("a\n  <% x %>\nb", "%", true)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "b", segs[2].text)
}
