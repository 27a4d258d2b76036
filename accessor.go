package templar

import (
	"log/slog"
	"reflect"

	"github.com/templar-dev/templar/conv"
	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/internal/fast"
)

// RawField reads and writes one bound field without value conversion.
// Backends produce RawField implementations; the generic introspection
// fallback implements the same interface.
type RawField interface {
	Get(instance any) (any, error)
	Set(instance any, value any) error
}

// Invoker calls one bound method or constructor without value conversion.
type Invoker interface {
	Invoke(instance any, args ...any) (any, error)
}

// invokerAdapter narrows the fixed-arity invoker surface of the fast
// backend to the public Invoker interface, dispatching by argument count.
type invokerAdapter struct {
	inv fast.Invoker
}

func (a invokerAdapter) Invoke(instance any, args ...any) (any, error) {
	return fast.Call(a.inv, instance, args)
}

// FieldAccessor exposes get/set for one declared field, applying the
// declared cast conversion transparently. Zero-value accessors report
// unavailable and fail access with a named error.
type FieldAccessor struct {
	decl      *decl.FieldDeclaration
	raw       RawField
	converter conv.DuplexConverter // nil when the field has no cast
	readOnly  bool
	logger    *slog.Logger
}

// IsAvailable reports whether the field bound to a runtime member and its
// accessor could be produced.
func (a *FieldAccessor) IsAvailable() bool { return a != nil && a.raw != nil }

// IsValid is an alias for IsAvailable on field accessors; a field accessor
// is valid exactly when it is backed by a runtime member.
func (a *FieldAccessor) IsValid() bool { return a.IsAvailable() }

// Declaration returns the declaration this accessor was built from.
func (a *FieldAccessor) Declaration() *decl.FieldDeclaration { return a.decl }

func (a *FieldAccessor) unavailable() *Error {
	name := "field"
	if a != nil && a.decl != nil {
		name = "field " + a.decl.Name.String()
	}
	return Errorf(CodeUnavailable, "%s is not available", name)
}

// Get reads the field from instance (nil for static fields) and applies
// the declared cast conversion. A runtime conversion failure falls back to
// the exposed type's default value.
func (a *FieldAccessor) Get(instance any) (any, error) {
	if !a.IsAvailable() {
		return nil, a.unavailable()
	}
	value, err := a.raw.Get(instance)
	if err != nil {
		return nil, Errorf(CodeInvalidArgument, "get %s", a.decl.Name).WithCause(err)
	}
	if a.converter == nil {
		return value, nil
	}
	converted, ok := a.converter.Convert(value)
	if !ok {
		return conv.Default(a.decl.Type.Exposed().Type), nil
	}
	return converted, nil
}

// GetSafe reads the field and returns the exposed type's default value
// instead of failing.
func (a *FieldAccessor) GetSafe(instance any) any {
	value, err := a.Get(instance)
	if err == nil {
		return value
	}
	if a != nil && a.logger != nil {
		a.logger.Warn("safe field get failed", "error", err)
	}
	var exposed reflect.Type
	if a != nil && a.decl != nil {
		exposed = a.decl.Type.Exposed().Type
	}
	return conv.Default(exposed)
}

// Set writes the field on instance (nil for static fields), converting
// the exposed value back to the internal type when a cast is declared.
func (a *FieldAccessor) Set(instance any, value any) error {
	if !a.IsAvailable() {
		return a.unavailable()
	}
	if a.readOnly {
		return Errorf(CodeInvalidArgument, "field %s is readonly", a.decl.Name)
	}
	if a.converter != nil {
		internal, ok := a.converter.ConvertBack(value)
		if !ok {
			return Errorf(CodeInvalidArgument, "value %v is not convertible for field %s", value, a.decl.Name)
		}
		value = internal
	}
	if err := a.raw.Set(instance, value); err != nil {
		return Errorf(CodeInvalidArgument, "set %s", a.decl.Name).WithCause(err)
	}
	return nil
}

// Translate wraps this accessor with an extra value conversion applied on
// get and reversed on set. The base accessor services the actual access.
func (a *FieldAccessor) Translate(converter conv.DuplexConverter) *FieldAccessor {
	return &FieldAccessor{
		decl:      a.decl,
		raw:       translatedRaw{base: a},
		converter: converter,
		readOnly:  a.readOnly,
		logger:    a.logger,
	}
}

// translatedRaw adapts a FieldAccessor to the RawField surface so
// translations stack.
type translatedRaw struct {
	base *FieldAccessor
}

func (t translatedRaw) Get(instance any) (any, error)     { return t.base.Get(instance) }
func (t translatedRaw) Set(instance any, value any) error { return t.base.Set(instance, value) }

// MethodAccessor exposes invoke for one declared method, converting cast
// arguments and the cast return value transparently.
type MethodAccessor struct {
	decl      *decl.MethodDeclaration
	invoker   Invoker
	returnCnv conv.DuplexConverter   // raw -> exposed, nil when uncast
	argCnvs   []conv.DuplexConverter // per argument, nil entries pass through
	logger    *slog.Logger
}

// IsAvailable reports whether the method bound and its invoker could be
// produced.
func (m *MethodAccessor) IsAvailable() bool { return m != nil && m.invoker != nil }

// IsValid is an alias for IsAvailable on method accessors.
func (m *MethodAccessor) IsValid() bool { return m.IsAvailable() }

// Declaration returns the declaration this accessor was built from.
func (m *MethodAccessor) Declaration() *decl.MethodDeclaration { return m.decl }

// Invoke calls the bound method. instance must be nil for static methods
// and a non-nil value assignable to the declaring type otherwise. The
// argument count must match the declaration exactly.
func (m *MethodAccessor) Invoke(instance any, args ...any) (any, error) {
	if !m.IsAvailable() {
		name := "method"
		if m != nil && m.decl != nil {
			name = "method " + m.decl.Name.String()
		}
		return nil, Errorf(CodeUnavailable, "%s is not available", name)
	}
	if len(args) != len(m.decl.Params) {
		return nil, Errorf(CodeInvocation, "invoke %s: invalid number of arguments: expected %d, actual %d",
			m.decl.Name, len(m.decl.Params), len(args))
	}
	converted := args
	if m.argCnvs != nil {
		converted = make([]any, len(args))
		for i, arg := range args {
			if m.argCnvs[i] == nil {
				converted[i] = arg
				continue
			}
			internal, ok := m.argCnvs[i].ConvertBack(arg)
			if !ok {
				return nil, Errorf(CodeInvocation, "invoke %s: argument [%d] value %v is not convertible",
					m.decl.Name, i, arg)
			}
			converted[i] = internal
		}
	}
	result, err := m.invoker.Invoke(instance, converted...)
	if err != nil {
		return nil, err
	}
	if m.returnCnv == nil {
		return result, nil
	}
	exposed, ok := m.returnCnv.Convert(result)
	if !ok {
		return conv.Default(m.decl.Returns.Exposed().Type), nil
	}
	return exposed, nil
}

// Translate returns an accessor applying an extra conversion to the
// return value; argument handling is left to the argument converter set.
func (m *MethodAccessor) Translate(converter conv.DuplexConverter) *MethodAccessor {
	return &MethodAccessor{
		decl:      m.decl,
		invoker:   translatedInvoker{base: m},
		returnCnv: converter,
		logger:    m.logger,
	}
}

type translatedInvoker struct {
	base *MethodAccessor
}

func (t translatedInvoker) Invoke(instance any, args ...any) (any, error) {
	return t.base.Invoke(instance, args...)
}

// ConstructorAccessor exposes instance creation for one declared
// constructor.
type ConstructorAccessor struct {
	decl    *decl.ConstructorDeclaration
	invoker Invoker
	argCnvs []conv.DuplexConverter
	logger  *slog.Logger
}

// IsAvailable reports whether the constructor bound.
func (c *ConstructorAccessor) IsAvailable() bool { return c != nil && c.invoker != nil }

// IsValid is an alias for IsAvailable on constructor accessors.
func (c *ConstructorAccessor) IsValid() bool { return c.IsAvailable() }

// NewInstance creates a new instance of the bound type.
func (c *ConstructorAccessor) NewInstance(args ...any) (any, error) {
	if !c.IsAvailable() {
		return nil, Errorf(CodeUnavailable, "constructor is not available")
	}
	if len(args) != len(c.decl.Params) {
		return nil, Errorf(CodeInvocation, "constructor %s: invalid number of arguments: expected %d, actual %d",
			c.decl.Name, len(c.decl.Params), len(args))
	}
	converted := args
	if c.argCnvs != nil {
		converted = make([]any, len(args))
		for i, arg := range args {
			if c.argCnvs[i] == nil {
				converted[i] = arg
				continue
			}
			internal, ok := c.argCnvs[i].ConvertBack(arg)
			if !ok {
				return nil, Errorf(CodeInvocation, "constructor %s: argument [%d] value %v is not convertible",
					c.decl.Name, i, arg)
			}
			converted[i] = internal
		}
	}
	return c.invoker.Invoke(nil, converted...)
}
