package ejs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
)

// Error message constants.
const (
	ErrMsgRelativeInclude   = "relative include requires an enclosing filename"
	ErrMsgIncludeDepth      = "include depth limit exceeded, template includes form a cycle or are nested too deeply"
	ErrMsgMissingDependency = "include target was not compiled into this program"
	ErrMsgUnterminatedTag   = "unterminated tag"
	ErrMsgBadDelimiter      = "delimiter must be a single non-reserved character"
	ErrMsgBadLocalsName     = "locals name must be a valid identifier"
	ErrMsgTemplateNotFound  = "template source not found"
	ErrMsgProgramSyntax     = "generated program failed to parse; check embedded fragments for template syntax errors (templatecheck can help pinpoint the fragment)"
	ErrMsgRenderFailed      = "template execution failed"
)

// Error code constants for categorization.
const (
	ErrCodeConfig  = "EJS_CONFIG"
	ErrCodeFetch   = "EJS_FETCH"
	ErrCodeCompile = "EJS_COMPILE"
	ErrCodeRender  = "EJS_RENDER"
)

// Metadata keys attached to errors.
const (
	MetaKeyPath    = "path"
	MetaKeyLine    = "line"
	MetaKeyInclude = "include"
)

// anonymousName is used in error output when no filename is known.
const anonymousName = "ejs"

// NewConfigError creates a configuration error.
func NewConfigError(msg string) error {
	return cuserr.NewValidationError(ErrCodeConfig, msg)
}

// NewIncludeConfigError creates a configuration error for a failing include path.
func NewIncludeConfigError(msg, include string) error {
	return cuserr.NewValidationError(ErrCodeConfig, msg).
		WithMetadata(MetaKeyInclude, include)
}

// NewFetchError wraps a source-provider failure. The underlying error is
// propagated unchanged in the cause chain.
func NewFetchError(name string, cause error) error {
	if cause == nil {
		return cuserr.NewNotFoundError(MetaKeyPath, ErrMsgTemplateNotFound).
			WithMetadata(MetaKeyPath, name)
	}
	return cuserr.WrapStdError(cause, ErrCodeFetch, ErrMsgTemplateNotFound).
		WithMetadata(MetaKeyPath, name)
}

// NewCompileError creates a program-construction error annotated with the
// source filename.
func NewCompileError(filename string, cause error) error {
	if filename == "" {
		filename = anonymousName
	}
	return cuserr.WrapStdError(cause, ErrCodeCompile, ErrMsgProgramSyntax).
		WithMetadata(MetaKeyPath, filename)
}

// NewScanError creates an error for malformed template text.
func NewScanError(msg string, line int) error {
	return cuserr.NewValidationError(ErrCodeCompile, msg).
		WithMetadata(MetaKeyLine, strconv.Itoa(line))
}

// ErrorPath returns the source path recorded on an error, or "" when the
// error carries none.
func ErrorPath(err error) string {
	var cerr *cuserr.CustomError
	if !errors.As(err, &cerr) {
		return ""
	}
	path, _ := cerr.GetMetadata(MetaKeyPath)
	return path
}

// ErrorLine returns the failing template line recorded on an error, or 0.
func ErrorLine(err error) int {
	var cerr *cuserr.CustomError
	if !errors.As(err, &cerr) {
		return 0
	}
	raw, ok := cerr.GetMetadata(MetaKeyLine)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(raw)
	return n
}

// contextLines is the number of source lines shown before and after the
// failing line.
const contextLines = 3

// rethrow rewrites an evaluation-time error with a window of the original
// template source around the failing line, then re-raises it. It never
// swallows the error.
func rethrow(err error, source, filename string, line int) error {
	name := filename
	if name == "" {
		name = anonymousName
	}

	lines := strings.Split(source, "\n")
	start := line - contextLines
	if start < 1 {
		start = 1
	}
	end := line + contextLines
	if end > len(lines) {
		end = len(lines)
	}

	var window strings.Builder
	for n := start; n <= end; n++ {
		marker := "  "
		if n == line {
			marker = ">>"
		}
		fmt.Fprintf(&window, " %s %d| %s", marker, n, lines[n-1])
		if n < end {
			window.WriteByte('\n')
		}
	}

	msg := fmt.Sprintf("%s:%d\n%s\n\n%s", name, line, window.String(), err.Error())
	return cuserr.WrapStdError(err, ErrCodeRender, msg).
		WithMetadata(MetaKeyPath, name).
		WithMetadata(MetaKeyLine, strconv.Itoa(line))
}
