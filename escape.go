package ejs

import (
	"fmt"
	"strings"
)

// EscapeFunc converts a value to its output representation. The result is
// appended to the rendered output as-is.
type EscapeFunc func(v any) string

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// EscapeXML is the default escape function. It stringifies the value and
// escapes the five XML-significant characters. A nil value produces an
// empty string.
func EscapeXML(v any) string {
	if v == nil {
		return ""
	}
	return xmlEscaper.Replace(fmt.Sprint(v))
}

// Raw stringifies a value without escaping. Used for <%- %> output.
func Raw(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
