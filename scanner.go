package ejs

import (
	"regexp"
	"strings"
)

// segmentKind classifies one lexical unit of a template.
type segmentKind int

const (
	segLiteral segmentKind = iota
	segEscaped             // <%= ... %>
	segRaw                 // <%- ... %>
	segScriptlet           // <% ... %> and <%_ ... %>
	segComment             // <%# ... %>
	segLiteralDelim        // <%% or %%>, already decoded to a single delimiter
)

// slurp directives attached to a tag's boundaries.
const (
	slurpNone    byte = 0
	slurpNewline byte = '-' // strip exactly one following CRLF/LF
	slurpSpace   byte = '_' // strip following horizontal whitespace and one newline
)

// segment is one immutable lexical unit. For tags, text is the inner
// content; for literals it is the raw span. line is the 1-based source line
// the segment begins on.
type segment struct {
	kind        segmentKind
	text        string
	line        int
	slurpBefore bool
	slurpAfter  byte
}

// scanner walks template text left to right and emits segments in textual
// order, tracking the physical line of every tag.
type scanner struct {
	src   string
	delim string
	pos   int
	line  int
}

var (
	leadingHWS  = regexp.MustCompile(`(?m)^[ \t]+`)
	trailingHWS = regexp.MustCompile(`(?m)[ \t]+(\r?)$`)
)

// scan tokenizes src into segments. When trim is set, horizontal whitespace
// at both ends of every physical line is stripped first.
func scan(src, delim string, trim bool) ([]segment, error) {
	if trim {
		src = leadingHWS.ReplaceAllString(src, "")
		src = trailingHWS.ReplaceAllString(src, "$1")
	}
	s := &scanner{src: src, delim: delim, line: 1}

	var segs []segment
	open := "<" + delim
	escClose := delim + delim + ">"

	for s.pos < len(s.src) {
		iOpen := strings.Index(s.src[s.pos:], open)
		iEsc := strings.Index(s.src[s.pos:], escClose)

		// Nothing tag-like left: the rest is literal.
		if iOpen < 0 && iEsc < 0 {
			s.emitLiteral(&segs, s.src[s.pos:])
			break
		}

		// %%> before the next <%: decode to a literal %>.
		if iEsc >= 0 && (iOpen < 0 || iEsc < iOpen) {
			s.emitLiteral(&segs, s.src[s.pos:s.pos+iEsc])
			s.advance(iEsc)
			segs = append(segs, segment{kind: segLiteralDelim, text: delim + ">", line: s.line})
			s.advance(len(escClose))
			continue
		}

		s.emitLiteral(&segs, s.src[s.pos:s.pos+iOpen])
		s.advance(iOpen)

		// <%% never opens a tag: decode to a literal <%.
		if s.peekAt(len(open)) == delim[0] {
			segs = append(segs, segment{kind: segLiteralDelim, text: open, line: s.line})
			s.advance(len(open) + 1)
			continue
		}

		seg, err := s.scanTag(open)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	resolveWhitespace(segs, trim)
	return segs, nil
}

// scanTag consumes one tag starting at the opening sequence and returns its
// segment.
func (s *scanner) scanTag(open string) (segment, error) {
	seg := segment{kind: segScriptlet, line: s.line}
	s.advance(len(open))

	switch s.peekAt(0) {
	case '=':
		seg.kind = segEscaped
		s.advance(1)
	case '-':
		seg.kind = segRaw
		s.advance(1)
	case '#':
		seg.kind = segComment
		s.advance(1)
	case '_':
		seg.slurpBefore = true
		s.advance(1)
	}

	closer := s.delim + ">"
	iClose := strings.Index(s.src[s.pos:], closer)
	if iClose < 0 {
		return segment{}, NewScanError(ErrMsgUnterminatedTag, seg.line)
	}

	content := s.src[s.pos : s.pos+iClose]
	if n := len(content); n > 0 {
		switch content[n-1] {
		case slurpNewline, slurpSpace:
			seg.slurpAfter = content[n-1]
			content = content[:n-1]
		}
	}
	seg.text = content
	s.advance(iClose + len(closer))
	return seg, nil
}

func (s *scanner) emitLiteral(segs *[]segment, text string) {
	if text == "" {
		return
	}
	*segs = append(*segs, segment{kind: segLiteral, text: text, line: s.line})
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

// advance moves the cursor n bytes forward, counting newlines.
func (s *scanner) advance(n int) {
	s.line += strings.Count(s.src[s.pos:s.pos+n], "\n")
	s.pos += n
}

// resolveWhitespace applies slurp directives by rewriting the literal spans
// adjacent to each tag. The directives are independent of tag kind.
func resolveWhitespace(segs []segment, trim bool) {
	for i := range segs {
		seg := &segs[i]
		if seg.kind == segLiteral || seg.kind == segLiteralDelim {
			continue
		}

		if seg.slurpBefore && i > 0 && segs[i-1].kind == segLiteral {
			segs[i-1].text = strings.TrimRight(segs[i-1].text, " \t")
		}

		if i+1 >= len(segs) || segs[i+1].kind != segLiteral {
			continue
		}
		next := &segs[i+1]
		switch {
		case seg.slurpAfter == slurpNewline:
			next.text = trimOneNewline(next.text)
		case seg.slurpAfter == slurpSpace || trim:
			next.text = trimOneNewline(strings.TrimLeft(next.text, " \t"))
		}
	}
}

// trimOneNewline removes exactly one leading CRLF or LF.
func trimOneNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}
