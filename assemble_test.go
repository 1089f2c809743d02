package ejs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembleBody(t *testing.T, src string, opts *CompileOptions) string {
	t.Helper()
	r, err := resolveOptions(opts)
	require.NoError(t, err)
	a := &assembler{eng: New(), opts: r, st: newCompileState(r.filename)}
	body, err := a.assemble(src)
	require.NoError(t, err)
	return body
}

func boolPtr(b bool) *bool { return &b }

func TestAssembleImplicitLocalsBinding(t *testing.T) {
	body := assembleBody(t, "x", nil)
	assert.Contains(t, body, "{{- $locals := . -}}")
}

func TestAssembleExplicitLocalsBinding(t *testing.T) {
	body := assembleBody(t, "x", &CompileOptions{ExplicitLocals: true})
	assert.Contains(t, body, "{{- $locals := .locals -}}")
}

func TestAssembleCustomLocalsName(t *testing.T) {
	body := assembleBody(t, "x", &CompileOptions{LocalsName: "it"})
	assert.Contains(t, body, "{{- $it := . -}}")
}

func TestAssembleFilenameMarker(t *testing.T) {
	body := assembleBody(t, "x", &CompileOptions{Filename: "views/a.ejs"})
	assert.Contains(t, body, "{{- /*ejs:file=views/a.ejs*/ -}}")
}

func TestAssembleEscapesLiteralBraces(t *testing.T) {
	body := assembleBody(t, "a {{ b", nil)
	assert.Contains(t, body, `{{"{{"}}`)
	assert.NotContains(t, body, "a {{ b")
}

func TestAssembleDefangsCommentTerminator(t *testing.T) {
	body := assembleBody(t, "<%# has */ inside %>", nil)
	assert.Contains(t, body, `*\/`)
}

func TestAssembleSuppressesBlankOutput(t *testing.T) {
	body := assembleBody(t, "a<%= undefined %>b<%- null %>c<%=  %>d", &CompileOptions{CompileDebug: boolPtr(false)})
	assert.NotContains(t, body, fnEscape)
	assert.Contains(t, body, "abcd")
}

func TestAssembleRawStripsTrailingSemicolon(t *testing.T) {
	body := assembleBody(t, "<%- .X; %>", &CompileOptions{CompileDebug: boolPtr(false)})
	assert.Contains(t, body, "{{.X}}")
	assert.NotContains(t, body, ";")
}

func TestAssembleLineMarks(t *testing.T) {
	body := assembleBody(t, "a\n<%= .X %>", nil)
	assert.Contains(t, body, "{{"+fnLine+" 2}}")
}

func TestAssembleLineMarksDisabled(t *testing.T) {
	body := assembleBody(t, "a\n<%= .X %>", &CompileOptions{CompileDebug: boolPtr(false)})
	assert.NotContains(t, body, fnLine)
}

func TestAssembleEscapedOutputForm(t *testing.T) {
	body := assembleBody(t, "<%= .X %>", &CompileOptions{CompileDebug: boolPtr(false)})
	assert.Equal(t, "{{"+fnFile+` ""}}{{- $locals := . -}}{{`+fnEscape+" (.X)}}", body)
}

func TestAssembleFileMarks(t *testing.T) {
	e := New(WithSourceProvider(MapSource{"views/partial.ejs": "P"}))
	r, err := resolveOptions(&CompileOptions{Filename: "views/a.ejs", CompileDebug: boolPtr(false)})
	require.NoError(t, err)
	a := &assembler{eng: e, opts: r, st: newCompileState(r.filename)}
	body, err := a.assemble("A<% include partial %>B")
	require.NoError(t, err)

	mark := "{{" + fnFile + ` "views/a.ejs"}}`
	assert.Equal(t, 2, strings.Count(body, mark), "prologue mark plus restore after the dependency call")
}

func TestProgramTextPlacesDependenciesFirst(t *testing.T) {
	e := New(WithSourceProvider(MapSource{
		"views/a.ejs":       "A<% include partial %>B",
		"views/partial.ejs": "P",
	}))
	tpl, err := e.CompileFile("views/a.ejs", nil)
	require.NoError(t, err)

	text := tpl.Source()
	assert.True(t, len(text) > 0)
	assert.Contains(t, text, `{{define "views/partial.ejs"}}`)
	assert.Less(t, strings.Index(text, `{{define "views/partial.ejs"}}`), strings.Index(text, `{{template "views/partial.ejs" .}}`))
}
