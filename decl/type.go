package decl

import (
	"reflect"
	"strings"
)

// TypeDeclaration is a raw type descriptor: a named type with optional
// generic arguments and array rank, plus an optional cast type when the
// member is exposed as a different type than it has at runtime.
type TypeDeclaration struct {
	Name      string
	ArrayRank int
	Generics  []TypeDeclaration

	// Cast is the declared public-facing type, nil when the member is
	// exposed as its raw type.
	Cast *TypeDeclaration

	// Type is the resolved runtime type, filled once during binding.
	Type reflect.Type
}

// HasCast reports whether the member is exposed under a different type.
func (t *TypeDeclaration) HasCast() bool { return t.Cast != nil }

// Exposed returns the type consumers see: the cast type when present,
// otherwise the raw type itself.
func (t *TypeDeclaration) Exposed() *TypeDeclaration {
	if t.Cast != nil {
		return t.Cast
	}
	return t
}

// IsVoid reports whether this is the absent return type of a method.
func (t *TypeDeclaration) IsVoid() bool {
	return t.Name == "void" && t.ArrayRank == 0
}

func (t *TypeDeclaration) String() string {
	var b strings.Builder
	if t.Cast != nil {
		b.WriteString("(")
		b.WriteString(t.Cast.String())
		b.WriteString(") ")
	}
	b.WriteString(t.Name)
	if len(t.Generics) > 0 {
		b.WriteString("<")
		for i, g := range t.Generics {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(g.String())
		}
		b.WriteString(">")
	}
	b.WriteString(strings.Repeat("[]", t.ArrayRank))
	return b.String()
}

// parseType reads a type descriptor from the lexer: an optional
// parenthesized cast type, the base name, an optional generic argument
// list, and any number of [] suffixes.
func parseType(l *lexer) (TypeDeclaration, error) {
	var td TypeDeclaration
	if l.accept("(") {
		cast, err := parseBareType(l)
		if err != nil {
			return td, err
		}
		if err := l.expectPunct(")"); err != nil {
			return td, err
		}
		raw, err := parseBareType(l)
		if err != nil {
			return td, err
		}
		td = raw
		td.Cast = &cast
		return td, nil
	}
	return parseBareType(l)
}

func parseBareType(l *lexer) (TypeDeclaration, error) {
	var td TypeDeclaration
	name, err := l.expectIdent()
	if err != nil {
		return td, err
	}
	td.Name = name
	if l.accept("<") {
		for {
			arg, err := parseBareType(l)
			if err != nil {
				return td, err
			}
			td.Generics = append(td.Generics, arg)
			if l.accept(",") {
				continue
			}
			if err := l.expectPunct(">"); err != nil {
				return td, err
			}
			break
		}
	}
	for l.peek().isPunct("[") {
		l.pop()
		if err := l.expectPunct("]"); err != nil {
			return td, err
		}
		td.ArrayRank++
	}
	return td, nil
}
