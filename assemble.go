package ejs

import (
	"fmt"
	"regexp"
	"strings"
)

// Function names bound into the generated program's environment.
const (
	fnEscape  = "__ejs_escape"
	fnLine    = "__ejs_line"
	fnFile    = "__ejs_file"
	fnInclude = "include"
)

// Program is the executable artifact produced by the source assembler:
// text/template source assembled from the template's segments, together
// with the dependency table frozen during this compile. It is consumed
// only by a ProgramLoader.
type Program struct {
	name string
	body string
	src  string
	opts *resolved

	deps  map[string]*Program
	order []string
}

// Name returns the template identifier the program was compiled under.
func (p *Program) Name() string { return p.name }

// SourceText returns the original template text.
func (p *Program) SourceText() string { return p.src }

// Text returns the complete program source: every frozen dependency as an
// associated definition, followed by the program body. The result is
// self-contained and loadable in a separate environment.
func (p *Program) Text() string {
	if len(p.order) == 0 {
		return p.body
	}
	var b strings.Builder
	for _, id := range p.order {
		dep := p.deps[id]
		b.WriteString(`{{define "`)
		b.WriteString(id)
		b.WriteString(`"}}`)
		b.WriteString(dep.body)
		b.WriteString(`{{end}}`)
	}
	b.WriteString(p.body)
	return b.String()
}

var (
	// Statement form: the whole fragment is an unquoted include directive,
	// resolved and inlined at compile time.
	includeStmtRe = regexp.MustCompile(`^\s*include\s+([^"\s]+)\s*$`)
	// Call form: an include invocation with a quoted path, resolved at
	// run time. Pre-registered into the dependency table when compiling
	// for distribution.
	includeCallRe = regexp.MustCompile(`\binclude\s+"([^"]+)"`)
)

// assembler folds a segment sequence into a Program body.
type assembler struct {
	eng  *Engine
	opts *resolved
	st   *compileState
}

// assemble produces the program body for src compiled under the assembler's
// options.
func (a *assembler) assemble(src string) (string, error) {
	segs, err := scan(src, a.opts.delim, a.opts.trimWhitespace)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	a.prologue(&b)

	for _, seg := range segs {
		switch seg.kind {
		case segLiteral, segLiteralDelim:
			b.WriteString(escapeLiteral(seg.text))
		case segComment:
			b.WriteString("{{/*")
			b.WriteString(strings.ReplaceAll(seg.text, "*/", `*\/`))
			b.WriteString("*/}}")
		case segEscaped:
			a.emitOutput(&b, seg, true)
		case segRaw:
			a.emitOutput(&b, seg, false)
		case segScriptlet:
			if err := a.emitScriptlet(&b, seg); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

// prologue establishes the filename marker, the file mark relative include
// paths resolve against, and the locals binding mode.
func (a *assembler) prologue(b *strings.Builder) {
	if a.opts.filename != "" {
		fmt.Fprintf(b, "{{- /*ejs:file=%s*/ -}}", a.opts.filename)
	}
	fmt.Fprintf(b, "{{%s %q}}", fnFile, a.opts.filename)
	if a.opts.explicitLocals {
		fmt.Fprintf(b, "{{- $%s := .%s -}}", a.opts.localsName, a.opts.localsName)
	} else {
		fmt.Fprintf(b, "{{- $%s := . -}}", a.opts.localsName)
	}
}

// emitOutput emits an escaped or raw output fragment.
func (a *assembler) emitOutput(b *strings.Builder, seg segment, escaped bool) {
	content := strings.TrimSpace(seg.text)
	if !escaped {
		content = strings.TrimSuffix(content, ";")
		content = strings.TrimSpace(content)
	}
	// Accidental output of the blank bindings is suppressed, not an error.
	if content == "" || content == "undefined" || content == "null" {
		return
	}
	a.registerCallIncludes(content)
	a.lineMark(b, seg.line)
	if escaped {
		fmt.Fprintf(b, "{{%s (%s)}}", fnEscape, content)
	} else {
		fmt.Fprintf(b, "{{%s}}", content)
	}
}

// emitScriptlet emits a statement fragment. An include directive in
// statement form is resolved and inlined here.
func (a *assembler) emitScriptlet(b *strings.Builder, seg segment) error {
	content := strings.TrimSpace(seg.text)
	if content == "" {
		return nil
	}

	if m := includeStmtRe.FindStringSubmatch(content); m != nil {
		id, err := a.includeProgram(m[1])
		if err != nil {
			return err
		}
		a.lineMark(b, seg.line)
		fmt.Fprintf(b, "{{template %q .}}", id)
		// Execution re-enters this body; restore its file mark so later
		// relative includes resolve against the right template again.
		fmt.Fprintf(b, "{{%s %q}}", fnFile, a.opts.filename)
		return nil
	}

	a.registerCallIncludes(content)
	a.lineMark(b, seg.line)
	fmt.Fprintf(b, "{{%s}}", content)
	return nil
}

// registerCallIncludes pre-registers call-form include targets into the
// dependency table so they are available at run time inside a distributed
// program. Outside distribution mode the call is resolved dynamically and
// nothing is frozen.
func (a *assembler) registerCallIncludes(content string) {
	if !a.opts.distributable {
		return
	}
	for _, m := range includeCallRe.FindAllStringSubmatch(content, -1) {
		// Failures surface at run time as missing-dependency errors;
		// pre-registration is best effort by design of the call form.
		_, _ = a.includeProgram(m[1])
	}
}

func (a *assembler) lineMark(b *strings.Builder, line int) {
	if a.opts.compileDebug {
		fmt.Fprintf(b, "{{%s %d}}", fnLine, line)
	}
}

// escapeLiteral makes a literal span inert in the generated program.
func escapeLiteral(text string) string {
	return strings.ReplaceAll(text, "{{", `{{"{{"}}`)
}
