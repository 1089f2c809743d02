package ejs

import (
	"path"
	"strings"
)

// compileState is the mutable state of one top-level compile: the frozen
// dependency table and the stack of in-progress template identifiers used
// to resolve relative include paths.
type compileState struct {
	deps  map[string]*Program
	order []string
	stack []string
}

func newCompileState(filename string) *compileState {
	st := &compileState{deps: make(map[string]*Program)}
	if filename != "" {
		st.stack = append(st.stack, filename)
	}
	return st
}

// enclosing returns the identifier of the nearest in-progress template.
func (st *compileState) enclosing() string {
	if len(st.stack) == 0 {
		return ""
	}
	return st.stack[len(st.stack)-1]
}

func (st *compileState) push(id string) { st.stack = append(st.stack, id) }
func (st *compileState) pop()           { st.stack = st.stack[:len(st.stack)-1] }

// resolveIncludePath turns an include directive's path into a concrete
// template identifier. Absolute paths resolve against root, relative paths
// against the directory of the enclosing template. A path without an
// extension gets the default template extension.
func resolveIncludePath(name, enclosing, root string) (string, error) {
	var resolved string
	if strings.HasPrefix(name, "/") {
		resolved = path.Join(root, name)
	} else {
		if enclosing == "" {
			return "", NewIncludeConfigError(ErrMsgRelativeInclude, name)
		}
		resolved = path.Join(path.Dir(enclosing), name)
	}
	if path.Ext(resolved) == "" {
		resolved += DefaultExtension
	}
	return resolved, nil
}

// includeProgram resolves an include path, compiles the target and records
// it in the dependency table. It returns the resolved identifier to emit
// the include call against. Repeated includes of the same identifier reuse
// the already-compiled program.
func (a *assembler) includeProgram(name string) (string, error) {
	id, err := resolveIncludePath(name, a.st.enclosing(), a.opts.root)
	if err != nil {
		return "", err
	}

	if _, ok := a.st.deps[id]; ok {
		return id, nil
	}
	if len(a.st.stack) >= maxIncludeDepth {
		return "", NewIncludeConfigError(ErrMsgIncludeDepth, id)
	}

	a.st.push(id)
	defer a.st.pop()

	// Outside distribution compiles a cached compile of the same file can
	// be reused instead of recompiling.
	if !a.opts.distributable && a.opts.cache {
		if t, ok := a.eng.cache.Get(id); ok {
			a.st.deps[id] = t.prog
			a.st.order = append(a.st.order, id)
			for _, sub := range t.prog.order {
				if _, dup := a.st.deps[sub]; !dup {
					a.st.deps[sub] = t.prog.deps[sub]
					a.st.order = append(a.st.order, sub)
				}
			}
			return id, nil
		}
	}

	text, err := a.eng.fetch(id, a.opts)
	if err != nil {
		return "", err
	}

	sub := &assembler{eng: a.eng, opts: a.opts.forInclude(id), st: a.st}
	body, err := sub.assemble(text)
	if err != nil {
		return "", err
	}

	// A cyclic registration can complete the same identifier in an inner
	// frame first; a second definition would not parse, so first one wins.
	if _, dup := a.st.deps[id]; !dup {
		a.st.deps[id] = &Program{name: id, body: body, src: text, opts: sub.opts}
		a.st.order = append(a.st.order, id)
	}
	return id, nil
}

// fetch obtains template text for an identifier, consulting the static page
// map before the engine's source provider.
func (e *Engine) fetch(id string, opts *resolved) (string, error) {
	if opts.pages != nil {
		return MapSource(opts.pages).Load(id)
	}
	return e.source.Load(id)
}
