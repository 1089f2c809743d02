package ejs

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

// Template is the callable produced by a successful compile. It closes over
// the loaded program, the escape function, the include resolver and the
// error reporter. Renders are synchronous; a render either completes or
// returns an error.
type Template struct {
	eng  *Engine // nil for templates loaded from distributed program text
	prog *Program
	inv  Invocable
	opts *resolved

	mu          sync.Mutex
	runtimeDeps map[string]*Template
}

// Name returns the template identifier, or "" for anonymous templates.
func (t *Template) Name() string { return t.opts.filename }

// Source returns the assembled program text. For distribution compiles this
// is the self-contained artifact: load it elsewhere with LoadProgram.
func (t *Template) Source() string { return t.prog.Text() }

// Render executes the template against a data context and returns the
// output string.
func (t *Template) Render(data any) (string, error) {
	return t.render(data, 0)
}

func (t *Template) render(data any, depth int) (string, error) {
	execData := data
	if t.opts.explicitLocals {
		execData = map[string]any{t.opts.localsName: data}
	}

	lastLine := 0
	currentFile := t.opts.filename
	env := &Env{
		Escape:   t.opts.escape,
		LineMark: func(n int) { lastLine = n },
		FileMark: func(name string) { currentFile = name },
		Include:  t.includeFn(data, depth, &currentFile),
	}

	var sb strings.Builder
	if err := t.inv.Invoke(&sb, execData, env); err != nil {
		// An error that already carries a source window keeps it; windowing
		// again at every unwind level of a nested include would compound
		// the message.
		if (t.opts.debug || t.opts.compileDebug) && lastLine > 0 && t.prog.src != "" && ErrorLine(err) == 0 {
			return "", rethrow(err, t.prog.src, t.opts.filename, lastLine)
		}
		return "", err
	}
	return sb.String(), nil
}

// includeFn builds the per-render include closure. Relative paths resolve
// against the template whose body is executing, tracked by current; the
// file marks in each program body keep it accurate as execution moves
// through frozen dependencies. Extra data is shallow-merged over the
// current context; frozen dependencies are served from the program itself
// before falling back to the engine.
func (t *Template) includeFn(data any, depth int, current *string) func(DepExec, string, ...any) (string, error) {
	// nested counts frozen-dependency executions in flight: a cycle among
	// frozen dependencies recurses inside dep without ever reaching a
	// child render, so depth alone would not bound it.
	nested := 0
	return func(dep DepExec, path string, extra ...any) (string, error) {
		id, err := resolveIncludePath(path, *current, t.opts.root)
		if err != nil {
			return "", err
		}
		if depth+nested >= maxIncludeDepth {
			return "", NewIncludeConfigError(ErrMsgIncludeDepth, id)
		}

		merged := mergeData(data, extra...)

		// Frozen dependencies first: inside a distributed program they are
		// the only includes available.
		depData := merged
		if t.opts.explicitLocals {
			depData = map[string]any{t.opts.localsName: merged}
		}
		enclosing := *current
		nested++
		out, err := dep(id, depData)
		nested--
		*current = enclosing
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, errNoAssociated) {
			return "", err
		}

		if t.eng == nil {
			return "", NewIncludeConfigError(ErrMsgMissingDependency, id)
		}
		child, err := t.childTemplate(id)
		if err != nil {
			return "", err
		}
		return child.render(merged, depth+1)
	}
}

// childTemplate compiles an include target for a runtime include, honoring
// the load-once and cache policies.
func (t *Template) childTemplate(id string) (*Template, error) {
	if t.opts.loadOnce {
		t.mu.Lock()
		child, ok := t.runtimeDeps[id]
		t.mu.Unlock()
		if ok {
			return child, nil
		}
	}
	if t.opts.cache {
		if child, ok := t.eng.cache.Get(id); ok {
			return child, nil
		}
	}

	text, err := t.eng.fetch(id, t.opts)
	if err != nil {
		return nil, err
	}
	child, err := t.eng.compileResolved(text, t.opts.forInclude(id))
	if err != nil {
		return nil, err
	}

	if t.opts.cache {
		t.eng.cache.Set(id, child)
	}
	if t.opts.loadOnce {
		t.mu.Lock()
		t.runtimeDeps[id] = child
		t.mu.Unlock()
	}
	return child, nil
}

// mergeData shallow-merges extra include data over the current context.
// Struct contexts merge by exported field name; a context that is neither
// a map nor a struct is replaced by the extra data.
func mergeData(base any, extra ...any) any {
	if len(extra) == 0 || extra[0] == nil {
		return base
	}
	bm, bok := dataMap(base)
	em, eok := dataMap(extra[0])
	if !bok || !eok {
		return extra[0]
	}
	merged := make(map[string]any, len(bm)+len(em))
	for k, v := range bm {
		merged[k] = v
	}
	for k, v := range em {
		merged[k] = v
	}
	return merged
}

// dataMap views a render context as a string-keyed map. Structs are read
// through reflection, exported fields only.
func dataMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	m := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		m[f.Name] = rv.Field(i).Interface()
	}
	return m, true
}

var fileMarkerRe = regexp.MustCompile(`\{\{- /\*ejs:file=([^*]+)\*/ -\}\}`)

// LoadProgram loads distributed program text produced by a Distributable
// compile into a renderable Template bound to a fresh environment. Includes
// resolve only against the dependencies frozen into the program; anything
// else fails with a configuration error.
func LoadProgram(text string, opts *CompileOptions) (*Template, error) {
	r, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if r.filename == "" {
		// Dependency definitions precede the body, so the body's marker
		// is the last one.
		if ms := fileMarkerRe.FindAllStringSubmatch(text, -1); len(ms) > 0 {
			r.filename = ms[len(ms)-1][1]
		}
	}

	prog := &Program{name: r.filename, body: text, opts: r}
	inv, err := TemplateLoader{}.Load(prog)
	if err != nil {
		return nil, NewCompileError(r.filename, err)
	}
	return &Template{prog: prog, inv: inv, opts: r, runtimeDeps: map[string]*Template{}}, nil
}
