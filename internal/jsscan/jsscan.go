// Package jsscan is a small lexer for JavaScript and TypeScript sources.
//
// It does not build a syntax tree. It blanks out comments while keeping
// string, template and regular expression literals intact, so that simple
// pattern matching over the result cannot be fooled by commented-out code.
// Line structure is preserved: every removed character becomes a space and
// newlines inside comments are kept.
package jsscan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for sources with an unterminated string, template,
// regular expression or block comment.
var ErrSyntax = errors.New("unterminated token")

// StripComments returns a copy of src with every comment replaced by spaces.
func StripComments(src []byte) ([]byte, error) {
	s := &scanner{src: src, out: make([]byte, 0, len(src)), line: 1}
	if err := s.code(false); err != nil {
		return nil, err
	}
	return s.out, nil
}

type scanner struct {
	src  []byte
	out  []byte
	pos  int
	line int
	// last is the last significant byte emitted in code context; it decides
	// whether a slash starts a regular expression or a division.
	last byte
}

func (s *scanner) errorf(what string, line int) error {
	return fmt.Errorf("%w: %s starting at line %d", ErrSyntax, what, line)
}

func (s *scanner) emit(b byte) {
	if b == '\n' {
		s.line++
	}
	s.out = append(s.out, b)
	s.pos++
}

func (s *scanner) blank() {
	if s.src[s.pos] == '\n' {
		s.emit('\n')
		return
	}
	s.out = append(s.out, ' ')
	s.pos++
}

// code scans source text. When nested is true it stops after the brace that
// closes a template substitution.
func (s *scanner) code(nested bool) error {
	depth := 0

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		switch {
		case c == '/' && s.peek(1) == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.blank()
			}
		case c == '/' && s.peek(1) == '*':
			start := s.line
			s.blank()
			s.blank()
			for {
				if s.pos >= len(s.src) {
					return s.errorf("block comment", start)
				}
				if s.src[s.pos] == '*' && s.peek(1) == '/' {
					s.blank()
					s.blank()
					break
				}
				s.blank()
			}
		case c == '"' || c == '\'':
			if err := s.quoted(c); err != nil {
				return err
			}
			s.last = c
		case c == '`':
			if err := s.template(); err != nil {
				return err
			}
			s.last = c
		case c == '/' && s.regexAllowed():
			if err := s.regex(); err != nil {
				return err
			}
			s.last = '/'
		case c == '{':
			depth++
			s.emit(c)
			s.last = c
		case c == '}':
			if nested && depth == 0 {
				s.emit(c)
				return nil
			}
			depth--
			s.emit(c)
			s.last = c
		default:
			if !isSpace(c) {
				s.last = c
			}
			s.emit(c)
		}
	}

	if nested {
		return s.errorf("template substitution", s.line)
	}
	return nil
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) quoted(q byte) error {
	start := s.line
	s.emit(q)
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '\\':
			s.emit(c)
			if s.pos < len(s.src) {
				s.emit(s.src[s.pos])
			}
		case '\n':
			return s.errorf("string", start)
		case q:
			s.emit(c)
			return nil
		default:
			s.emit(c)
		}
	}
	return s.errorf("string", start)
}

func (s *scanner) template() error {
	start := s.line
	s.emit('`')
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.emit(c)
			if s.pos < len(s.src) {
				s.emit(s.src[s.pos])
			}
		case c == '`':
			s.emit(c)
			return nil
		case c == '$' && s.peek(1) == '{':
			s.emit(c)
			s.emit('{')
			if err := s.code(true); err != nil {
				return err
			}
		default:
			s.emit(c)
		}
	}
	return s.errorf("template literal", start)
}

func (s *scanner) regex() error {
	start := s.line
	inClass := false
	s.emit('/')
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.emit(c)
			if s.pos < len(s.src) {
				s.emit(s.src[s.pos])
			}
		case c == '\n':
			return s.errorf("regular expression", start)
		case c == '[':
			inClass = true
			s.emit(c)
		case c == ']':
			inClass = false
			s.emit(c)
		case c == '/' && !inClass:
			s.emit(c)
			return nil
		default:
			s.emit(c)
		}
	}
	return s.errorf("regular expression", start)
}

// regexAllowed guesses whether a slash at the current position begins a
// regular expression literal, based on the preceding token.
func (s *scanner) regexAllowed() bool {
	switch s.last {
	case 0, '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';', '+', '-', '*', '%', '<', '>', '~', '^':
		return true
	}
	word := s.lastWord()
	return word == "return" || word == "typeof" || word == "case" || word == "in" || word == "of"
}

func (s *scanner) lastWord() string {
	end := len(s.out)
	for end > 0 && isSpace(s.out[end-1]) {
		end--
	}
	start := end
	for start > 0 && isIdent(s.out[start-1]) {
		start--
	}
	return string(s.out[start:end])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ReadString reads the string or template literal starting at src[pos],
// skipping leading whitespace. It returns the raw literal including quotes and
// the offset just past it.
func ReadString(src []byte, pos int) (string, int, bool) {
	for pos < len(src) && isSpace(src[pos]) {
		pos++
	}
	if pos >= len(src) {
		return "", pos, false
	}

	q := src[pos]
	if q != '"' && q != '\'' && q != '`' {
		return "", pos, false
	}

	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case q:
			return string(src[pos : i+1]), i + 1, true
		}
	}
	return "", pos, false
}

// ErrInterpolated is returned by Unquote for template literals with ${}
// substitutions, whose value cannot be known statically.
var ErrInterpolated = errors.New("template literal contains substitutions")

// Unquote returns the value of a quoted string or template literal.
func Unquote(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != lit[len(lit)-1] || !strings.ContainsRune("\"'`", rune(lit[0])) {
		return "", fmt.Errorf("not a string literal: %s", lit)
	}

	q := lit[0]
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if q == '`' && c == '$' && i+1 < len(body) && body[i+1] == '{' {
			return "", ErrInterpolated
		}
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}

		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// MatchBrace returns the offset of the brace closing the one at src[open],
// skipping string and template literals. It returns -1 when unbalanced.
func MatchBrace(src []byte, open int) int {
	if open >= len(src) || src[open] != '{' {
		return -1
	}

	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '"', '\'', '`':
			_, end, ok := ReadString(src, i)
			if !ok {
				return -1
			}
			i = end - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
