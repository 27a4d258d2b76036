package decl

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenKind distinguishes identifiers from single-rune punctuation.
type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenPunct
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) isPunct(s string) bool { return t.kind == tokenPunct && t.text == s }

// lexer splits a single declaration line into identifier and punctuation
// tokens. Identifiers may contain dots, slashes and dashes so qualified
// paths and Go import paths stay one token.
type lexer struct {
	input  string
	offset int
	tokens []token
	next   int
}

func newLexer(input string) (*lexer, error) {
	l := &lexer{input: input}
	if err := l.scan(); err != nil {
		return nil, err
	}
	return l, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '_' || r == '.' || r == '$' || r == '*' || r == '/' || r == '-'
}

func (l *lexer) scan() error {
	runes := []rune(l.input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			l.tokens = append(l.tokens, token{kind: tokenIdent, text: string(runes[start:i]), pos: start})
		case strings.ContainsRune("()<>[]{},:;", r):
			l.tokens = append(l.tokens, token{kind: tokenPunct, text: string(r), pos: i})
			i++
		default:
			return fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return nil
}

func (l *lexer) peek() token {
	if l.next >= len(l.tokens) {
		return token{kind: tokenEOF, pos: len(l.input)}
	}
	return l.tokens[l.next]
}

func (l *lexer) pop() token {
	t := l.peek()
	if t.kind != tokenEOF {
		l.next++
	}
	return t
}

func (l *lexer) accept(punct string) bool {
	if l.peek().isPunct(punct) {
		l.pop()
		return true
	}
	return false
}

func (l *lexer) expectIdent() (string, error) {
	t := l.pop()
	if t.kind != tokenIdent {
		return "", fmt.Errorf("expected identifier at offset %d, found %q", t.pos, t.text)
	}
	return t.text, nil
}

func (l *lexer) expectPunct(punct string) error {
	t := l.pop()
	if !t.isPunct(punct) {
		return fmt.Errorf("expected %q at offset %d, found %q", punct, t.pos, t.text)
	}
	return nil
}

func (l *lexer) atEOF() bool { return l.peek().kind == tokenEOF }
