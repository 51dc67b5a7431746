package conformance

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Line source shared by both assemblers
// ---------------------------------------------------------------------------

type line struct {
	no   int
	text string
}

func (l line) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %s", l.no, l.text, fmt.Sprintf(format, args...))
}

// opensBlock reports whether l ends with "{".
func (l line) opensBlock() bool { return strings.HasSuffix(l.text, "{") }

// source is a cursor over trimmed, non-empty, comment-free lines.
type source struct {
	lines []line
	pos   int
}

func newSource(text string) *source {
	s := &source{}
	for i, raw := range strings.Split(text, "\n") {
		t := strings.TrimSpace(stripComment(raw))
		if t != "" {
			s.lines = append(s.lines, line{no: i + 1, text: t})
		}
	}
	return s
}

// stripComment drops a # comment that is not inside a quoted string.
func stripComment(s string) string {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case '#':
			if !quoted {
				return s[:i]
			}
		}
	}
	return s
}

func (s *source) next() (line, bool) {
	if s.pos >= len(s.lines) {
		return line{}, false
	}
	l := s.lines[s.pos]
	s.pos++
	return l, true
}

func (s *source) peek() (line, bool) {
	if s.pos >= len(s.lines) {
		return line{}, false
	}
	return s.lines[s.pos], true
}

// block consumes the lines up to the "}" matching opener and returns
// them as their own source.
func (s *source) block(opener line) (*source, error) {
	depth := 1
	start := s.pos
	for l, ok := s.next(); ok; l, ok = s.next() {
		switch {
		case l.text == "}":
			depth--
			if depth == 0 {
				return &source{lines: s.lines[start : s.pos-1]}, nil
			}
		case l.opensBlock():
			depth++
		}
	}
	return nil, opener.errorf("block is not closed")
}

// ---------------------------------------------------------------------------
// Operand parsing
// ---------------------------------------------------------------------------

// splitOperands splits a comma separated list, keeping quoted strings
// whole.
func splitOperands(s string) ([]string, error) {
	var out []string
	s = strings.TrimSpace(s)
	for s != "" {
		var item string
		if s[0] == '"' {
			q, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("bad string %s", s)
			}
			item, s = q, s[len(q):]
		} else if i := strings.IndexByte(s, ','); i >= 0 {
			item, s = s[:i], s[i:]
		} else {
			item, s = s, ""
		}
		out = append(out, strings.TrimSpace(item))
		s = strings.TrimSpace(s)
		if s != "" {
			if s[0] != ',' {
				return nil, fmt.Errorf("expected , before %s", s)
			}
			s = strings.TrimSpace(s[1:])
		}
	}
	return out, nil
}

func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return "", fmt.Errorf("expected a quoted string, got %s", s)
	}
	return strconv.Unquote(s)
}

// cut splits a line into its mnemonic and the rest.
func cut(text string) (string, string) {
	op, rest, _ := strings.Cut(text, " ")
	return op, strings.TrimSpace(rest)
}

// header parses "name(params) options... {" into its parts.
func header(rest string) (name string, params []string, options map[string]string, err error) {
	rest = strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	lp, rp := strings.IndexByte(rest, '('), strings.IndexByte(rest, ')')
	if lp < 0 || rp < lp {
		return "", nil, nil, fmt.Errorf("expected (params)")
	}
	name = strings.TrimSpace(rest[:lp])
	for _, p := range strings.Split(rest[lp+1:rp], ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	options = make(map[string]string)
	for _, opt := range strings.Fields(rest[rp+1:]) {
		k, v, _ := strings.Cut(opt, "=")
		options[k] = v
	}
	return name, params, options, nil
}
