package templar

import (
	"log/slog"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/templar-dev/templar/decl"
)

// Class is the bound form of one class template. It holds the accessor
// table for every declared member and is embedded in user template
// structs, whose element fields are wired up during Bind.
//
// A Class stays usable when members fail to bind: those members report
// unavailable and the diagnostics record why. Only a missing non-optional
// member marks the whole class invalid.
type Class struct {
	initOnce sync.Once

	engine *Engine
	decl   *decl.ClassDeclaration
	typ    reflect.Type
	valid  bool

	fields   map[string]*FieldAccessor
	methods  map[string]*MethodAccessor
	ctors    []*ConstructorAccessor
	nextCtor int

	diags []error
}

// Bind parses a single class declaration and binds tmpl to it. tmpl must
// be a non-nil pointer to a struct embedding Class; its element fields
// (Field, Method, Constructor and the static variants) are wired to the
// declared members, matched by name.
func (e *Engine) Bind(tmpl any, declaration string) error {
	src := decl.Parse(declaration)
	if !src.IsValid() {
		err := NewError(CodeParse, "template declaration did not parse")
		if all := src.AllErrors(); len(all) > 0 {
			err = err.WithCause(all[0])
		}
		return err
	}
	if len(src.Classes) != 1 {
		return Errorf(CodeParse, "expected a single class declaration, found %d", len(src.Classes))
	}
	return e.BindDeclared(tmpl, src.Classes[0])
}

// BindPath binds tmpl to a class declaration supplied by the registered
// class declaration sources for path.
func (e *Engine) BindPath(tmpl any, path string) error {
	t, _ := e.types.LookupType(path)
	cls := e.types.ResolveClassDeclaration(path, t)
	if cls == nil {
		return Errorf(CodeUnresolved, "no class declaration source answered for %s", path)
	}
	return e.BindDeclared(tmpl, cls)
}

// BindDeclared binds tmpl to an already parsed class declaration.
func (e *Engine) BindDeclared(tmpl any, cls *decl.ClassDeclaration) error {
	container, err := classOf(tmpl)
	if err != nil {
		return err
	}

	var initErr error
	container.initOnce.Do(func() {
		container.init(e, cls)
		initErr = container.wire(tmpl)
	})
	return initErr
}

// classOf extracts the embedded Class from a template struct pointer.
func classOf(tmpl any) (*Class, error) {
	rv := reflect.ValueOf(tmpl)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, Errorf(CodeInvalidArgument, "template must be a non-nil struct pointer, got %T", tmpl)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return nil, Errorf(CodeInvalidArgument, "template must point to a struct, got %s", elem.Type())
	}
	for i := 0; i < elem.NumField(); i++ {
		sf := elem.Type().Field(i)
		if sf.Anonymous && sf.Type == reflect.TypeOf(Class{}) {
			return elem.Field(i).Addr().Interface().(*Class), nil
		}
	}
	return nil, Errorf(CodeInvalidArgument, "template %s does not embed templar.Class", elem.Type())
}

// init binds the declaration against the type registry and builds the
// accessor table. Synthesis failures of individual members degrade that
// member to unavailable; they never abort init.
func (c *Class) init(e *Engine, cls *decl.ClassDeclaration) {
	logger := e.Logger()
	c.engine = e
	c.decl = cls
	c.fields = make(map[string]*FieldAccessor, len(cls.Fields))
	c.methods = make(map[string]*MethodAccessor, len(cls.Methods))

	bindErrs := e.types.BindClass(cls)
	for _, err := range bindErrs {
		diag := classifyBinding(err)
		c.diags = append(c.diags, diag)
		logger.Warn("template member failed to bind", "class", cls.Path(), "error", diag)
	}
	c.typ = cls.Type
	c.valid = len(bindErrs) == 0 && cls.Available()

	for _, f := range cls.Fields {
		acc, err := e.fieldAccessor(f)
		if err != nil {
			c.recordMemberFailure(f.Name.Name, f.Optional, err, logger)
			acc = &FieldAccessor{decl: f, logger: logger}
		}
		c.fields[f.Name.Name] = acc
	}
	for _, m := range cls.Methods {
		acc, err := e.methodAccessor(m, cls.Type)
		if err != nil {
			c.recordMemberFailure(m.Name.Name, m.Optional, err, logger)
			acc = &MethodAccessor{decl: m, logger: logger}
		}
		c.methods[m.Name.Name] = acc
	}
	for _, ctor := range cls.Constructors {
		acc, err := e.constructorAccessor(ctor)
		if err != nil {
			c.recordMemberFailure(ctor.Name.Name, ctor.Optional, err, logger)
			acc = &ConstructorAccessor{decl: ctor, logger: logger}
		}
		c.ctors = append(c.ctors, acc)
	}
}

func (c *Class) recordMemberFailure(name string, optional bool, err error, logger *slog.Logger) {
	c.diags = append(c.diags, err)
	logger.Warn("template member degraded to unavailable",
		"class", c.decl.Path(), "member", name, "error", err)
	if !optional {
		c.valid = false
	}
}

// wire connects the element fields of the template struct to the
// accessor table. A non-optional element with no matching available
// member invalidates the container; wiring still continues so every
// problem is reported.
func (c *Class) wire(tmpl any) error {
	elem := reflect.ValueOf(tmpl).Elem()
	t := elem.Type()
	var firstErr error
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		fv := elem.Field(i)
		if !fv.CanAddr() {
			continue
		}
		el, ok := fv.Addr().Interface().(templateElement)
		if !ok {
			continue
		}
		name, optional := elementName(sf)
		if err := el.initElement(c, name, optional); err != nil {
			c.diags = append(c.diags, err)
			if !optional {
				c.valid = false
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// elementName derives the declared member name for a template element
// field: the templar struct tag when present, otherwise the field name
// with its first rune lowercased.
func elementName(sf reflect.StructField) (name string, optional bool) {
	if tag, ok := sf.Tag.Lookup("templar"); ok {
		name, rest, _ := cutTag(tag)
		return name, rest == "optional"
	}
	r, size := utf8.DecodeRuneInString(sf.Name)
	return string(unicode.ToLower(r)) + sf.Name[size:], false
}

func cutTag(tag string) (string, string, bool) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i], tag[i+1:], true
		}
	}
	return tag, "", false
}

// IsValid reports whether every non-optional member bound.
func (c *Class) IsValid() bool { return c.valid }

// IsAvailable reports whether the class resolved to a runtime type.
func (c *Class) IsAvailable() bool { return c.typ != nil }

// Path returns the template path of the bound class.
func (c *Class) Path() string {
	if c.decl == nil {
		return ""
	}
	return c.decl.Path()
}

// Type returns the runtime type the class bound to, nil when absent.
func (c *Class) Type() reflect.Type { return c.typ }

// Declaration returns the class declaration this container bound to.
func (c *Class) Declaration() *decl.ClassDeclaration { return c.decl }

// Diagnostics returns the binding problems recorded during init.
func (c *Class) Diagnostics() []error {
	return append([]error(nil), c.diags...)
}

// Field returns the accessor for a declared field by exposed name.
func (c *Class) Field(name string) *FieldAccessor { return c.fields[name] }

// Method returns the accessor for a declared method by exposed name.
func (c *Class) Method(name string) *MethodAccessor { return c.methods[name] }

// Constructor returns the i'th declared constructor accessor.
func (c *Class) Constructor(i int) *ConstructorAccessor {
	if i < 0 || i >= len(c.ctors) {
		return nil
	}
	return c.ctors[i]
}

// IsType reports whether instance is an instance of the bound type, that
// is a non-nil *T for bound type T.
func (c *Class) IsType(instance any) bool {
	if c.typ == nil || instance == nil {
		return false
	}
	rv := reflect.ValueOf(instance)
	return rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem() == c.typ
}

// IsAssignableFrom reports whether values of type t can be used where the
// bound type is expected.
func (c *Class) IsAssignableFrom(t reflect.Type) bool {
	if c.typ == nil || t == nil {
		return false
	}
	return t.AssignableTo(reflect.PointerTo(c.typ)) || t.AssignableTo(c.typ)
}

// CreateHandle wraps an existing instance of the bound type.
func (c *Class) CreateHandle(instance any) (*Handle, error) {
	if !c.IsAvailable() {
		return nil, Errorf(CodeUnavailable, "class %s did not bind to a type", c.Path())
	}
	if !c.IsType(instance) {
		return nil, Errorf(CodeInvalidArgument, "instance %T is not a %s", instance, reflect.PointerTo(c.typ))
	}
	return &Handle{class: c, instance: instance}, nil
}

// NewInstanceNull creates a handle around a fresh zero value of the
// bound type, bypassing declared constructors.
func (c *Class) NewInstanceNull() (*Handle, error) {
	if !c.IsAvailable() {
		return nil, Errorf(CodeUnavailable, "class %s did not bind to a type", c.Path())
	}
	return &Handle{class: c, instance: reflect.New(c.typ).Interface()}, nil
}

// NewInstance creates a handle through the i'th declared constructor.
func (c *Class) NewInstance(i int, args ...any) (*Handle, error) {
	ctor := c.Constructor(i)
	if ctor == nil {
		return nil, Errorf(CodeUnavailable, "class %s has no constructor %d", c.Path(), i)
	}
	instance, err := ctor.NewInstance(args...)
	if err != nil {
		return nil, err
	}
	return c.CreateHandle(instance)
}
