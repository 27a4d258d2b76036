package templar

import (
	"reflect"
)

// templateElement is implemented by the typed element kinds below. Bind
// calls initElement for every element field of a template struct.
type templateElement interface {
	initElement(c *Class, name string, optional bool) error
}

// elementType checks a declared exposed type against the element's Go
// type parameter. A nil exposed type means the member never resolved;
// the element still wires and reports unavailable at use.
func elementType(exposed, want reflect.Type, kind, name string) error {
	if exposed == nil || want == nil {
		return nil
	}
	if exposed == want || exposed.AssignableTo(want) {
		return nil
	}
	return Errorf(CodeTypeMismatch, "%s %s exposes %s, element wants %s", kind, name, exposed, want)
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Field is a typed view over one declared instance field.
type Field[T any] struct {
	acc *FieldAccessor
}

func (f *Field[T]) initElement(c *Class, name string, optional bool) error {
	acc := c.Field(name)
	if acc == nil {
		if optional {
			return nil
		}
		return Errorf(CodeUnresolved, "class %s declares no field %s", c.Path(), name)
	}
	if acc.decl.Mod.Static {
		return Errorf(CodeInvalidArgument, "field %s is static, use StaticField", name)
	}
	if err := elementType(exposedType(acc), typeOf[T](), "field", name); err != nil {
		return err
	}
	f.acc = acc
	return nil
}

func exposedType(acc *FieldAccessor) reflect.Type {
	if acc.decl == nil {
		return nil
	}
	return acc.decl.Type.Exposed().Type
}

// IsAvailable reports whether the field bound and can be accessed.
func (f *Field[T]) IsAvailable() bool { return f.acc.IsAvailable() }

// Get reads the field from instance.
func (f *Field[T]) Get(instance any) (T, error) {
	var zero T
	if f.acc == nil {
		return zero, Errorf(CodeUnavailable, "field element is not bound")
	}
	value, err := f.acc.Get(instance)
	if err != nil {
		return zero, err
	}
	return assertElem[T](value)
}

// GetSafe reads the field, returning the zero value on any failure.
func (f *Field[T]) GetSafe(instance any) T {
	value, err := f.Get(instance)
	if err != nil {
		var zero T
		return zero
	}
	return value
}

// Set writes the field on instance.
func (f *Field[T]) Set(instance any, value T) error {
	if f.acc == nil {
		return Errorf(CodeUnavailable, "field element is not bound")
	}
	return f.acc.Set(instance, value)
}

// Accessor exposes the untyped accessor behind the element.
func (f *Field[T]) Accessor() *FieldAccessor { return f.acc }

// StaticField is a typed view over one declared static field.
type StaticField[T any] struct {
	acc *FieldAccessor
}

func (f *StaticField[T]) initElement(c *Class, name string, optional bool) error {
	acc := c.Field(name)
	if acc == nil {
		if optional {
			return nil
		}
		return Errorf(CodeUnresolved, "class %s declares no field %s", c.Path(), name)
	}
	if !acc.decl.Mod.Static {
		return Errorf(CodeInvalidArgument, "field %s is not static, use Field", name)
	}
	if err := elementType(exposedType(acc), typeOf[T](), "static field", name); err != nil {
		return err
	}
	f.acc = acc
	return nil
}

// IsAvailable reports whether the field bound and can be accessed.
func (f *StaticField[T]) IsAvailable() bool { return f.acc.IsAvailable() }

// Get reads the static field.
func (f *StaticField[T]) Get() (T, error) {
	var zero T
	if f.acc == nil {
		return zero, Errorf(CodeUnavailable, "field element is not bound")
	}
	value, err := f.acc.Get(nil)
	if err != nil {
		return zero, err
	}
	return assertElem[T](value)
}

// GetSafe reads the static field, returning the zero value on any failure.
func (f *StaticField[T]) GetSafe() T {
	value, err := f.Get()
	if err != nil {
		var zero T
		return zero
	}
	return value
}

// Set writes the static field.
func (f *StaticField[T]) Set(value T) error {
	if f.acc == nil {
		return Errorf(CodeUnavailable, "field element is not bound")
	}
	return f.acc.Set(nil, value)
}

// Accessor exposes the untyped accessor behind the element.
func (f *StaticField[T]) Accessor() *FieldAccessor { return f.acc }

// Method is a typed view over one declared instance method. R is the
// exposed return type; methods declared void use Method[any] and get nil.
type Method[R any] struct {
	acc *MethodAccessor
}

func (m *Method[R]) initElement(c *Class, name string, optional bool) error {
	acc := c.Method(name)
	if acc == nil {
		if optional {
			return nil
		}
		return Errorf(CodeUnresolved, "class %s declares no method %s", c.Path(), name)
	}
	if acc.decl.Mod.Static {
		return Errorf(CodeInvalidArgument, "method %s is static, use StaticMethod", name)
	}
	if !acc.decl.Returns.IsVoid() {
		if err := elementType(acc.decl.Returns.Exposed().Type, typeOf[R](), "method", name); err != nil {
			return err
		}
	}
	m.acc = acc
	return nil
}

// IsAvailable reports whether the method bound and can be invoked.
func (m *Method[R]) IsAvailable() bool { return m.acc.IsAvailable() }

// Invoke calls the method on instance.
func (m *Method[R]) Invoke(instance any, args ...any) (R, error) {
	var zero R
	if m.acc == nil {
		return zero, Errorf(CodeUnavailable, "method element is not bound")
	}
	result, err := m.acc.Invoke(instance, args...)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return assertElem[R](result)
}

// Accessor exposes the untyped accessor behind the element.
func (m *Method[R]) Accessor() *MethodAccessor { return m.acc }

// StaticMethod is a typed view over one declared static method.
type StaticMethod[R any] struct {
	acc *MethodAccessor
}

func (m *StaticMethod[R]) initElement(c *Class, name string, optional bool) error {
	acc := c.Method(name)
	if acc == nil {
		if optional {
			return nil
		}
		return Errorf(CodeUnresolved, "class %s declares no method %s", c.Path(), name)
	}
	if !acc.decl.Mod.Static {
		return Errorf(CodeInvalidArgument, "method %s is not static, use Method", name)
	}
	if !acc.decl.Returns.IsVoid() {
		if err := elementType(acc.decl.Returns.Exposed().Type, typeOf[R](), "static method", name); err != nil {
			return err
		}
	}
	m.acc = acc
	return nil
}

// IsAvailable reports whether the method bound and can be invoked.
func (m *StaticMethod[R]) IsAvailable() bool { return m.acc.IsAvailable() }

// Invoke calls the static method.
func (m *StaticMethod[R]) Invoke(args ...any) (R, error) {
	var zero R
	if m.acc == nil {
		return zero, Errorf(CodeUnavailable, "method element is not bound")
	}
	result, err := m.acc.Invoke(nil, args...)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return assertElem[R](result)
}

// Accessor exposes the untyped accessor behind the element.
func (m *StaticMethod[R]) Accessor() *MethodAccessor { return m.acc }

// Constructor is a typed view over one declared constructor. Constructor
// elements are matched to declared constructors in order of appearance.
type Constructor[T any] struct {
	acc *ConstructorAccessor
}

func (k *Constructor[T]) initElement(c *Class, name string, optional bool) error {
	idx := c.nextCtor
	c.nextCtor++
	acc := c.Constructor(idx)
	if acc == nil {
		if optional {
			return nil
		}
		return Errorf(CodeUnresolved, "class %s declares no constructor %d", c.Path(), idx)
	}
	if c.typ != nil {
		if err := elementType(reflect.PointerTo(c.typ), typeOf[T](), "constructor", name); err != nil {
			return err
		}
	}
	k.acc = acc
	return nil
}

// IsAvailable reports whether the constructor bound.
func (k *Constructor[T]) IsAvailable() bool { return k.acc.IsAvailable() }

// New creates a new instance.
func (k *Constructor[T]) New(args ...any) (T, error) {
	var zero T
	if k.acc == nil {
		return zero, Errorf(CodeUnavailable, "constructor element is not bound")
	}
	instance, err := k.acc.NewInstance(args...)
	if err != nil {
		return zero, err
	}
	return assertElem[T](instance)
}

// Accessor exposes the untyped accessor behind the element.
func (k *Constructor[T]) Accessor() *ConstructorAccessor { return k.acc }

// assertElem narrows an untyped accessor result to the element type.
func assertElem[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		return zero, Errorf(CodeTypeMismatch, "value of type %T does not satisfy element type %s",
			value, typeOf[T]())
	}
	return typed, nil
}
