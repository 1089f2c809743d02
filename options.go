package ejs

import "regexp"

// Defaults used when a CompileOptions field is left zero.
const (
	DefaultDelimiter  = "%"
	DefaultLocalsName = "locals"
	DefaultExtension  = ".ejs"
	DefaultRoot       = "/"
)

// maxIncludeDepth bounds include recursion. The limit exists because include
// cycles are otherwise unbounded; hitting it surfaces a configuration error
// naming the offending path.
const maxIncludeDepth = 64

// CompileOptions configures a single compile. Once a compile begins the
// options are fixed for it and for every include it triggers transitively.
// The zero value is a usable default configuration.
type CompileOptions struct {
	// Delimiter is the tag delimiter character. Default "%", giving tags
	// of the form <% ... %>.
	Delimiter string
	// Filename identifies the template source. Required for relative
	// includes and for caching; used in error output.
	Filename string
	// Root is the base directory for absolute include paths. Default "/".
	Root string
	// LocalsName is the template variable the data context is bound to in
	// the generated program. Default "locals".
	LocalsName string
	// Cache memoizes the compiled template by Filename in the engine's
	// cache service.
	Cache bool
	// Strict makes references to missing data fields fail the render and
	// disables implicit field exposure.
	Strict bool
	// ExplicitLocals disables implicit field exposure: fragments must
	// reach data through the locals binding instead of bare field access.
	ExplicitLocals bool
	// Debug enables evaluation-time error rewriting with a source window.
	Debug bool
	// CompileDebug controls emission of line-tracking instrumentation into
	// the generated program. Nil means enabled.
	CompileDebug *bool
	// TrimWhitespace strips leading and trailing horizontal whitespace
	// from every physical line before scanning.
	TrimWhitespace bool
	// Escape overrides the output escape function. Default EscapeXML.
	Escape EscapeFunc
	// Distributable compiles a self-contained program: compile-time
	// includes and call-form include targets are frozen into the program
	// text so it can be loaded and run in a separate environment.
	Distributable bool
	// Precompile lists include paths to freeze into a distributable
	// program in addition to those discovered in the template text.
	Precompile []string
	// LoadOnce compiles each distinct include identifier at most once per
	// top-level compile and reuses the result for repeated includes.
	LoadOnce bool
	// Pages is a static identifier → template text map consulted instead
	// of the engine's source provider when set.
	Pages map[string]string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// resolved is the immutable per-compile view of CompileOptions with
// defaults applied.
type resolved struct {
	delim          string
	filename       string
	root           string
	localsName     string
	cache          bool
	strict         bool
	explicitLocals bool
	debug          bool
	compileDebug   bool
	trimWhitespace bool
	escape         EscapeFunc
	distributable  bool
	precompile     []string
	loadOnce       bool
	pages          map[string]string
}

// resolveOptions validates opts and applies defaults. A nil opts is treated
// as the zero value.
func resolveOptions(opts *CompileOptions) (*resolved, error) {
	if opts == nil {
		opts = &CompileOptions{}
	}

	delim := opts.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	if len(delim) != 1 || delim == "<" || delim == ">" || delim == " " {
		return nil, NewConfigError(ErrMsgBadDelimiter)
	}

	localsName := opts.LocalsName
	if localsName == "" {
		localsName = DefaultLocalsName
	}
	if !identRe.MatchString(localsName) {
		return nil, NewConfigError(ErrMsgBadLocalsName)
	}

	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}

	escape := opts.Escape
	if escape == nil {
		escape = EscapeXML
	}

	compileDebug := true
	if opts.CompileDebug != nil {
		compileDebug = *opts.CompileDebug
	}

	return &resolved{
		delim:          delim,
		filename:       opts.Filename,
		root:           root,
		localsName:     localsName,
		cache:          opts.Cache,
		strict:         opts.Strict,
		explicitLocals: opts.ExplicitLocals || opts.Strict,
		debug:          opts.Debug,
		compileDebug:   compileDebug,
		trimWhitespace: opts.TrimWhitespace,
		escape:         escape,
		distributable:  opts.Distributable,
		precompile:     opts.Precompile,
		loadOnce:       opts.LoadOnce,
		pages:          opts.Pages,
	}, nil
}

// forInclude derives the options an included template compiles with: same
// configuration, new filename.
func (r *resolved) forInclude(filename string) *resolved {
	inc := *r
	inc.filename = filename
	return &inc
}
