package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingVariable is returned by Format when a placeholder has no value.
var ErrMissingVariable = errors.New("missing template variable")

// Template is an immutable prompt text with {name} placeholders. Literal
// braces are written as {{ and }}.
type Template struct {
	name   string
	pieces []piece
}

type piece struct {
	text        string
	placeholder bool
}

// Parse compiles text into a Template. Unbalanced braces and malformed
// placeholder names are rejected.
func Parse(name, text string) (*Template, error) {
	var (
		pieces []piece
		lit    strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			pieces = append(pieces, piece{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %s: unclosed '{' at offset %d", name, i)
			}
			ident := text[i+1 : i+1+end]
			if !isIdent(ident) {
				return nil, fmt.Errorf("template %s: invalid placeholder %q at offset %d", name, ident, i)
			}
			flush()
			pieces = append(pieces, piece{text: ident, placeholder: true})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("template %s: single '}' at offset %d", name, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return &Template{name: name, pieces: pieces}, nil
}

// MustParse is Parse that panics on error.
func MustParse(name, text string) *Template {
	t, err := Parse(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the file name the template was loaded from.
func (t *Template) Name() string { return t.name }

// Placeholders returns the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range t.pieces {
		if p.placeholder && !seen[p.text] {
			seen[p.text] = true
			out = append(out, p.text)
		}
	}
	return out
}

// Format substitutes vars into the template. Every placeholder must have a
// value; unused vars are ignored.
func (t *Template) Format(vars map[string]string) (string, error) {
	var sb strings.Builder
	for _, p := range t.pieces {
		if !p.placeholder {
			sb.WriteString(p.text)
			continue
		}
		v, ok := vars[p.text]
		if !ok {
			return "", fmt.Errorf("template %s: %w %q", t.name, ErrMissingVariable, p.text)
		}
		sb.WriteString(v)
	}
	return sb.String(), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
