package ejs

import (
	"errors"
	"io"
	"strings"
	"text/template"
)

// DepExec executes a program's associated (frozen) dependency by identifier.
// It reports errNoAssociated when the program carries no such dependency.
type DepExec func(id string, data any) (string, error)

// errNoAssociated signals that an identifier is not among a program's
// frozen dependencies, so the caller may fall back to dynamic resolution.
var errNoAssociated = errors.New("ejs: no associated program")

// Env is the environment a loaded program runs with: the escape function,
// the include resolver and the line and file recorders the generated
// program calls into. FileMark tracks which template's body is executing,
// so relative includes inside a dependency resolve against that dependency.
type Env struct {
	Escape   EscapeFunc
	LineMark func(line int)
	FileMark func(name string)
	Include  func(dep DepExec, path string, extra ...any) (string, error)
}

// Invocable is a loaded program ready to run against a data context.
type Invocable interface {
	Invoke(w io.Writer, data any, env *Env) error
}

// ProgramLoader turns an assembled Program into an Invocable. This is the
// seam between the compiler and the execution environment; the default
// loader evaluates programs with text/template, but any evaluator honoring
// the same contract can be injected.
type ProgramLoader interface {
	Load(p *Program) (Invocable, error)
}

// parseFuncs satisfies name resolution while parsing; the real bindings
// are supplied per invocation.
var parseFuncs = template.FuncMap{
	fnEscape:  func(any) string { return "" },
	fnLine:    func(int) string { return "" },
	fnFile:    func(string) string { return "" },
	fnInclude: func(string, ...any) (string, error) { return "", nil },
}

// TemplateLoader is the default ProgramLoader. It parses the program text
// once and binds a fresh environment for every invocation.
type TemplateLoader struct{}

// Load parses the assembled program.
func (TemplateLoader) Load(p *Program) (Invocable, error) {
	name := p.name
	if name == "" {
		name = anonymousName
	}
	tmpl, err := template.New(name).Funcs(parseFuncs).Parse(p.Text())
	if err != nil {
		return nil, err
	}
	return &loadedProgram{tmpl: tmpl, strict: p.opts != nil && p.opts.strict}, nil
}

type loadedProgram struct {
	tmpl   *template.Template
	strict bool
}

// Invoke runs the program once. The parse tree is shared; the function
// bindings and option flags live on a per-invocation clone.
func (lp *loadedProgram) Invoke(w io.Writer, data any, env *Env) error {
	t, err := lp.tmpl.Clone()
	if err != nil {
		return err
	}

	depExec := func(id string, depData any) (string, error) {
		dep := t.Lookup(id)
		if dep == nil {
			return "", errNoAssociated
		}
		var sb strings.Builder
		if err := dep.Execute(&sb, depData); err != nil {
			return "", err
		}
		return sb.String(), nil
	}

	t.Funcs(template.FuncMap{
		fnEscape: func(v any) string { return env.Escape(v) },
		fnLine: func(n int) string {
			if env.LineMark != nil {
				env.LineMark(n)
			}
			return ""
		},
		fnFile: func(name string) string {
			if env.FileMark != nil {
				env.FileMark(name)
			}
			return ""
		},
		fnInclude: func(path string, extra ...any) (string, error) {
			return env.Include(depExec, path, extra...)
		},
	})
	if lp.strict {
		t.Option("missingkey=error")
	}
	return t.Execute(w, data)
}
