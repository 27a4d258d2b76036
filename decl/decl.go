// Package decl implements the template declaration language: a compact
// textual description of a type's fields, methods and constructors that is
// later bound to a concrete runtime type. Parsing never panics on bad
// input; malformed lines are recorded as localized errors and the rest of
// the document is still processed.
package decl

import (
	"fmt"
	"reflect"
	"strings"
)

// Visibility is the declared access level of a member. It is carried for
// diagnostics; Go's runtime enforcement is by case, not keyword.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

// Modifiers holds the member modifier keywords.
type Modifiers struct {
	Visibility Visibility
	Static     bool
	Final      bool
	Optional   bool
	ReadOnly   bool
}

// NamePair joins the exposed name of a member with the name it actually has
// at runtime. A declaration `localField:b` exposes localField and binds to
// the runtime member b.
type NamePair struct {
	Name string // name used by consuming code
	Real string // runtime name; empty means same as Name
}

// Runtime returns the name to search for on the concrete type.
func (n NamePair) Runtime() string {
	if n.Real != "" {
		return n.Real
	}
	return n.Name
}

func (n NamePair) String() string {
	if n.Real != "" && n.Real != n.Name {
		return n.Name + ":" + n.Real
	}
	return n.Name
}

// State is the resolution state shared by every declaration.
type State struct {
	Resolved bool
	Valid    bool
	Optional bool
}

// MarkResolved records the outcome of a resolution attempt.
func (s *State) MarkResolved(ok bool) {
	s.Resolved = true
	s.Valid = ok
}

// Available reports whether the declaration resolved to a runtime member.
func (s *State) Available() bool { return s.Resolved && s.Valid }

// FieldDeclaration describes one declared field.
type FieldDeclaration struct {
	State
	Name   NamePair
	Type   TypeDeclaration
	Mod    Modifiers
	IsEnum bool

	// Binding is filled in once during resolution.
	Binding *FieldBinding
}

// FieldBinding is the concrete member a FieldDeclaration resolved to.
type FieldBinding struct {
	Owner reflect.Type
	// Index is the field index path from Owner, following anonymous
	// embedded structs. Empty for static bindings.
	Index []int
	Field reflect.StructField
	// Static is an addressable value backing a static field binding.
	Static reflect.Value
}

func (f *FieldDeclaration) String() string {
	var b strings.Builder
	b.WriteString(f.Mod.Visibility.String())
	if f.Mod.Static {
		b.WriteString(" static")
	}
	fmt.Fprintf(&b, " %s %s", f.Type.String(), f.Name.String())
	return b.String()
}

// ParameterDeclaration is one declared method or constructor parameter.
type ParameterDeclaration struct {
	Name string
	Type TypeDeclaration
}

// Requirement references another member that a generated method body may
// access. The referenced member is parsed with the normal member grammar
// and resolved alongside the owning class.
type Requirement struct {
	Text   string
	Field  *FieldDeclaration
	Method *MethodDeclaration
}

// MethodDeclaration describes one declared method. A non-empty Body means
// the method is generated rather than bound to an existing runtime member;
// the body text is opaque to this package.
type MethodDeclaration struct {
	State
	Name         NamePair
	Returns      TypeDeclaration
	Params       []ParameterDeclaration
	Mod          Modifiers
	Body         string
	Requirements []Requirement

	Binding *MethodBinding
}

// MethodBinding is the concrete method a MethodDeclaration resolved to.
type MethodBinding struct {
	Owner  reflect.Type
	Method reflect.Method
	// Func is the callable value. For instance methods the first argument
	// is the receiver; for static bindings it is the registered function.
	Func reflect.Value
}

func (m *MethodDeclaration) String() string {
	var b strings.Builder
	b.WriteString(m.Mod.Visibility.String())
	if m.Mod.Static {
		b.WriteString(" static")
	}
	fmt.Fprintf(&b, " %s %s(", m.Returns.String(), m.Name.String())
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", p.Type.String(), p.Name)
	}
	b.WriteString(")")
	return b.String()
}

// IsGenerated reports whether the method carries an opaque generated body.
func (m *MethodDeclaration) IsGenerated() bool { return m.Body != "" }

// ConstructorDeclaration describes one declared constructor.
type ConstructorDeclaration struct {
	State
	Name   NamePair
	Params []ParameterDeclaration
	Mod    Modifiers

	Binding *ConstructorBinding
}

// ConstructorBinding is the factory a ConstructorDeclaration resolved to.
// A zero Func means the default zero-argument construction path.
type ConstructorBinding struct {
	Owner reflect.Type
	Func  reflect.Value
}

func (c *ConstructorDeclaration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(", c.Mod.Visibility.String(), c.Name.String())
	for i, p := range c.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", p.Type.String(), p.Name)
	}
	b.WriteString(")")
	return b.String()
}

// ClassDeclaration is the parsed body of one class template. It is
// immutable after parsing except for the resolution fields, which are
// filled exactly once during binding.
type ClassDeclaration struct {
	State
	Package      string
	Name         string
	Fields       []*FieldDeclaration
	Methods      []*MethodDeclaration
	Constructors []*ConstructorDeclaration

	// Errors holds localized parse errors recorded against this class.
	Errors []error

	// Type is the concrete runtime type this class bound to, nil before
	// resolution or when the type is absent.
	Type reflect.Type
}

// Path returns the qualified template path of the class.
func (c *ClassDeclaration) Path() string {
	if c.Package == "" {
		return c.Name
	}
	return c.Package + "." + c.Name
}

// FieldByName returns the declared field with the given exposed name.
func (c *ClassDeclaration) FieldByName(name string) *FieldDeclaration {
	for _, f := range c.Fields {
		if f.Name.Name == name {
			return f
		}
	}
	return nil
}

// MethodByName returns the declared method with the given exposed name.
func (c *ClassDeclaration) MethodByName(name string) *MethodDeclaration {
	for _, m := range c.Methods {
		if m.Name.Name == name {
			return m
		}
	}
	return nil
}

func (c *ClassDeclaration) recordError(err error) {
	c.Errors = append(c.Errors, err)
	c.Valid = false
}

// SourceDeclaration is the parse result for one template document: an
// ordered sequence of class declarations plus the leading directives.
type SourceDeclaration struct {
	// ResolverPath is the argument of a leading #resolver directive.
	ResolverPath string
	// Bootstrap is the opaque code block of a #bootstrap directive. It is
	// not interpreted here; the consuming system runs it once.
	Bootstrap string

	Classes []*ClassDeclaration
	Errors  []error
}

// IsValid reports whether every contained declaration parsed cleanly.
func (s *SourceDeclaration) IsValid() bool {
	if len(s.Errors) > 0 {
		return false
	}
	for _, c := range s.Classes {
		if len(c.Errors) > 0 {
			return false
		}
	}
	return true
}

// AllErrors flattens document and per-class parse errors, in order.
func (s *SourceDeclaration) AllErrors() []error {
	out := append([]error(nil), s.Errors...)
	for _, c := range s.Classes {
		out = append(out, c.Errors...)
	}
	return out
}
