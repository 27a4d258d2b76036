package resolver

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/templar-dev/templar/decl"
)

// Sentinel errors for classifying binding failures with errors.Is.
var (
	// ErrUnresolved marks a class or member with no runtime counterpart.
	ErrUnresolved = errors.New("unresolved reference")
	// ErrTypeMismatch marks a member whose runtime type disagrees with
	// the declared type and no cast was declared.
	ErrTypeMismatch = errors.New("type mismatch")
)

// BindClass binds every member of a parsed class declaration to the
// concrete runtime type registered under the class path. Binding never
// panics: failures are returned as diagnostics, unresolvable non-optional
// members invalidate the class, and optional members are merely marked
// unavailable.
//
// Resolution runs at most once per declaration: concurrent callers
// serialize on a per-declaration lock, and once the declaration is marked
// resolved later calls report the recorded outcome without writing any
// state. Bound declarations are therefore safe for unsynchronized
// concurrent reads.
func (r *Registry) BindClass(cls *decl.ClassDeclaration) []error {
	mu := r.bindLock(cls)
	mu.Lock()
	defer mu.Unlock()

	if cls.Resolved {
		return bindOutcome(cls)
	}

	path := cls.Path()
	t, ok := r.LookupType(path)
	if !ok {
		cls.MarkResolved(false)
		for _, f := range cls.Fields {
			f.MarkResolved(false)
		}
		for _, m := range cls.Methods {
			m.MarkResolved(false)
		}
		for _, c := range cls.Constructors {
			c.MarkResolved(false)
		}
		if cls.Optional {
			return nil
		}
		return []error{fmt.Errorf("class %s: %w", path, ErrUnresolved)}
	}
	cls.Type = t

	var errs []error
	report := func(optional bool, err error) {
		if err != nil && !optional {
			errs = append(errs, err)
		}
	}

	for _, f := range cls.Fields {
		report(f.Optional, r.bindField(cls, t, f))
	}
	for _, m := range cls.Methods {
		report(m.Optional, r.bindMethod(cls, t, m))
	}
	for _, c := range cls.Constructors {
		report(c.Optional, r.bindConstructor(cls, t, c))
	}

	cls.MarkResolved(len(errs) == 0)
	return errs
}

// bindOutcome reports the result of an earlier bind without touching the
// declaration. The original failure detail is not retained, so repeat
// binds describe unavailable members generically.
func bindOutcome(cls *decl.ClassDeclaration) []error {
	if cls.Type == nil {
		if cls.Optional {
			return nil
		}
		return []error{fmt.Errorf("class %s: %w", cls.Path(), ErrUnresolved)}
	}
	var errs []error
	for _, f := range cls.Fields {
		if !f.Optional && !f.Available() {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, ErrUnresolved))
		}
	}
	for _, m := range cls.Methods {
		if !m.Optional && !m.Available() {
			errs = append(errs, fmt.Errorf("method %s: %w", m.Name, ErrUnresolved))
		}
	}
	for _, c := range cls.Constructors {
		if !c.Optional && !c.Available() {
			errs = append(errs, fmt.Errorf("constructor %s: %w", c.Name, ErrUnresolved))
		}
	}
	return errs
}

func (r *Registry) bindField(cls *decl.ClassDeclaration, t reflect.Type, f *decl.FieldDeclaration) error {
	if f.Available() {
		return nil
	}
	if err := r.ResolveType(&f.Type, cls.Package); err != nil {
		f.MarkResolved(false)
		return fmt.Errorf("field %s: %w: %v", f.Name, ErrUnresolved, err)
	}
	name := r.ResolveFieldName(t, f.Name.Runtime())

	if f.Mod.Static {
		static, ok := r.staticOf(cls.Path(), name)
		if !ok {
			f.MarkResolved(false)
			return fmt.Errorf("static field %s.%s: %w", cls.Path(), name, ErrUnresolved)
		}
		if static.Type() != f.Type.Type {
			f.MarkResolved(false)
			return fmt.Errorf("static field %s.%s: %w: declared %s, actual %s",
				cls.Path(), name, ErrTypeMismatch, f.Type.Type, static.Type())
		}
		f.Binding = &decl.FieldBinding{Owner: t, Static: static}
		f.MarkResolved(true)
		return nil
	}

	index, sf, ok := findField(t, name)
	if !ok {
		f.MarkResolved(false)
		return fmt.Errorf("field %s.%s: %w", t, name, ErrUnresolved)
	}
	if sf.Type != f.Type.Type {
		f.MarkResolved(false)
		return fmt.Errorf("field %s.%s: %w: declared %s, actual %s",
			t, name, ErrTypeMismatch, f.Type.Type, sf.Type)
	}
	f.Binding = &decl.FieldBinding{Owner: t, Index: index, Field: sf}
	f.MarkResolved(true)
	return nil
}

// findField searches the type's own fields for an exact name match, then
// walks anonymous embedded structs, mirroring a superclass chain search.
// Interfaces can not declare fields, so only the struct chain is searched.
func findField(t reflect.Type, name string) ([]int, reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return nil, reflect.StructField{}, false
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous && sf.Name == name {
			return []int{i}, sf, true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		embedded := sf.Type
		if embedded.Kind() == reflect.Pointer {
			continue // pointer embedding is not followed; a nil link would make access undefined
		}
		if index, found, ok := findField(embedded, name); ok {
			return append([]int{i}, index...), found, true
		}
	}
	return nil, reflect.StructField{}, false
}

func (r *Registry) bindMethod(cls *decl.ClassDeclaration, t reflect.Type, m *decl.MethodDeclaration) error {
	if m.Available() {
		return nil
	}
	if err := r.ResolveType(&m.Returns, cls.Package); err != nil {
		m.MarkResolved(false)
		return fmt.Errorf("method %s: %w: %v", m.Name, ErrUnresolved, err)
	}
	paramTypes, err := r.resolveParams(m.Params, cls.Package)
	if err != nil {
		m.MarkResolved(false)
		return fmt.Errorf("method %s: %w: %v", m.Name, ErrUnresolved, err)
	}

	if m.IsGenerated() {
		if err := r.bindRequirements(cls, t, m); err != nil {
			m.MarkResolved(false)
			return err
		}
		// The opaque body is compiled by the backend; there is no
		// runtime member to bind.
		m.MarkResolved(true)
		return nil
	}

	name := r.ResolveMethodName(t, m.Name.Runtime(), paramTypes)

	if m.Mod.Static {
		candidates := r.funcsOf(cls.Path(), name)
		for _, fn := range candidates {
			if signatureMatches(fn.Type(), 0, paramTypes, m.Returns.Type) {
				m.Binding = &decl.MethodBinding{Owner: t, Func: fn}
				m.MarkResolved(true)
				return nil
			}
		}
		if len(candidates) > 0 {
			m.MarkResolved(false)
			return fmt.Errorf("static method %s.%s: %w: no overload takes %v",
				cls.Path(), name, ErrTypeMismatch, paramTypes)
		}
		m.MarkResolved(false)
		return fmt.Errorf("static method %s.%s: %w", cls.Path(), name, ErrUnresolved)
	}

	// The pointer method set includes value-receiver methods and methods
	// promoted from embedded types, covering the superclass chain and
	// declared interfaces in one search.
	method, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok {
		m.MarkResolved(false)
		return fmt.Errorf("method %s.%s: %w", t, name, ErrUnresolved)
	}
	if !signatureMatches(method.Func.Type(), 1, paramTypes, m.Returns.Type) {
		m.MarkResolved(false)
		return fmt.Errorf("method %s.%s: %w: declared %s(%v)",
			t, name, ErrTypeMismatch, m.Returns.Type, paramTypes)
	}
	m.Binding = &decl.MethodBinding{Owner: t, Method: method, Func: method.Func}
	m.MarkResolved(true)
	return nil
}

// bindRequirements resolves the member declarations a generated body
// references so the body compiler receives concrete bindings.
func (r *Registry) bindRequirements(cls *decl.ClassDeclaration, t reflect.Type, m *decl.MethodDeclaration) error {
	for i := range m.Requirements {
		req := &m.Requirements[i]
		switch {
		case req.Field != nil:
			if err := r.bindField(cls, t, req.Field); err != nil {
				return fmt.Errorf("method %s requirement %q: %w", m.Name, req.Text, err)
			}
		case req.Method != nil:
			if err := r.bindMethod(cls, t, req.Method); err != nil {
				return fmt.Errorf("method %s requirement %q: %w", m.Name, req.Text, err)
			}
		default:
			return fmt.Errorf("method %s requirement %q: %w", m.Name, req.Text, ErrUnresolved)
		}
	}
	return nil
}

func (r *Registry) bindConstructor(cls *decl.ClassDeclaration, t reflect.Type, c *decl.ConstructorDeclaration) error {
	if c.Available() {
		return nil
	}
	paramTypes, err := r.resolveParams(c.Params, cls.Package)
	if err != nil {
		c.MarkResolved(false)
		return fmt.Errorf("constructor %s: %w: %v", c.Name, ErrUnresolved, err)
	}

	for _, fn := range r.constructorsOf(cls.Path()) {
		if constructorMatches(fn.Type(), paramTypes, t) {
			c.Binding = &decl.ConstructorBinding{Owner: t, Func: fn}
			c.MarkResolved(true)
			return nil
		}
	}
	if len(paramTypes) == 0 {
		// Default construction path: a fresh zero value of the type.
		c.Binding = &decl.ConstructorBinding{Owner: t}
		c.MarkResolved(true)
		return nil
	}
	c.MarkResolved(false)
	return fmt.Errorf("constructor %s(%v): %w", cls.Path(), paramTypes, ErrUnresolved)
}

// signatureMatches checks a function type against resolved parameter and
// return types. skip is the receiver offset for bound methods. A trailing
// error result is always permitted; it surfaces as an invocation failure.
func signatureMatches(fn reflect.Type, skip int, params []reflect.Type, ret reflect.Type) bool {
	if fn.IsVariadic() {
		return false
	}
	if fn.NumIn()-skip != len(params) {
		return false
	}
	for i, p := range params {
		if fn.In(i+skip) != p {
			return false
		}
	}
	switch fn.NumOut() {
	case 0:
		return ret == nil
	case 1:
		if fn.Out(0) == errType {
			return ret == nil
		}
		return fn.Out(0) == ret
	case 2:
		return fn.Out(1) == errType && fn.Out(0) == ret
	default:
		return false
	}
}

// constructorMatches accepts factories returning T or *T, optionally with
// a trailing error.
func constructorMatches(fn reflect.Type, params []reflect.Type, t reflect.Type) bool {
	if fn.IsVariadic() || fn.NumIn() != len(params) {
		return false
	}
	for i, p := range params {
		if fn.In(i) != p {
			return false
		}
	}
	if fn.NumOut() < 1 || fn.NumOut() > 2 {
		return false
	}
	if fn.NumOut() == 2 && fn.Out(1) != errType {
		return false
	}
	out := fn.Out(0)
	return out == t || out == reflect.PointerTo(t)
}

var errType = reflect.TypeOf((*error)(nil)).Elem()
