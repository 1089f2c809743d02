// Package ejs compiles EJS-style template text into executable programs.
//
// A template interleaves literal text with delimited fragments:
//
//	<ul>
//	<% range .Items %>
//	  <li><%= . %></li>
//	<% end %>
//	</ul>
//
// Fragments are text/template actions; the compiler delimits, relocates and
// splices them into a program the configured ProgramLoader turns into a
// callable. Escaped output (<%= %>), raw output (<%- %>), comments (<%# %>),
// scriptlets (<% %>), whitespace slurping (<%_ _%> -%>) and includes follow
// the classic EJS rules.
package ejs

import (
	"go.uber.org/zap"
)

// Version of the ejs module.
const Version = "1.0.0"

// Engine compiles and renders templates. All collaborators — the template
// cache, the source provider and the program loader — are explicit and
// injectable; an Engine holds no ambient global state.
type Engine struct {
	cache  *Cache
	source SourceProvider
	loader ProgramLoader
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache supplies the compiled-template cache service. Engines sharing a
// Cache share compiles.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithSourceProvider supplies the template source provider.
// Default: FileSource.
func WithSourceProvider(p SourceProvider) Option {
	return func(e *Engine) { e.source = p }
}

// WithLoader supplies the ProgramLoader that turns assembled programs into
// callables. Default: TemplateLoader.
func WithLoader(l ProgramLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithLogger supplies a logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		cache:  NewCache(),
		source: FileSource{},
		loader: TemplateLoader{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile compiles template text into a Template. Options are fixed for
// this compile and every include it triggers transitively.
func (e *Engine) Compile(text string, opts *CompileOptions) (*Template, error) {
	r, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return e.compileResolved(text, r)
}

// compileResolved runs the compile pipeline under already-resolved options.
func (e *Engine) compileResolved(text string, r *resolved) (*Template, error) {
	if r.cache && r.filename != "" {
		if t, ok := e.cache.Get(r.filename); ok {
			e.logger.Debug("cache hit", zap.String("filename", r.filename))
			return t, nil
		}
	}

	st := newCompileState(r.filename)
	a := &assembler{eng: e, opts: r, st: st}

	if r.distributable {
		for _, p := range r.precompile {
			if _, err := a.includeProgram(p); err != nil {
				return nil, err
			}
		}
	}

	body, err := a.assemble(text)
	if err != nil {
		return nil, err
	}

	prog := &Program{
		name:  r.filename,
		body:  body,
		src:   text,
		opts:  r,
		deps:  st.deps,
		order: st.order,
	}

	inv, err := e.loader.Load(prog)
	if err != nil {
		return nil, NewCompileError(r.filename, err)
	}
	e.logger.Debug("compiled template",
		zap.String("filename", r.filename),
		zap.Int("dependencies", len(st.order)),
		zap.Int("bytes", len(body)))

	t := &Template{eng: e, prog: prog, inv: inv, opts: r, runtimeDeps: map[string]*Template{}}
	if r.cache && r.filename != "" {
		e.cache.Set(r.filename, t)
	}
	return t, nil
}

// CompileFile reads a template through the source provider and compiles it.
// The path becomes the template's filename unless the options set one.
func (e *Engine) CompileFile(path string, opts *CompileOptions) (*Template, error) {
	o := CompileOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Filename == "" {
		o.Filename = path
	}

	r, err := resolveOptions(&o)
	if err != nil {
		return nil, err
	}
	if r.cache {
		if t, ok := e.cache.Get(r.filename); ok {
			return t, nil
		}
	}
	text, err := e.fetch(r.filename, r)
	if err != nil {
		return nil, err
	}
	return e.compileResolved(text, r)
}

// Render compiles template text and renders it in one step.
func (e *Engine) Render(text string, data any, opts *CompileOptions) (string, error) {
	t, err := e.Compile(text, opts)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}

// RenderFile compiles a template file and renders it in one step.
func (e *Engine) RenderFile(path string, data any, opts *CompileOptions) (string, error) {
	t, err := e.CompileFile(path, opts)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}
