package templar

import (
	"fmt"
	"reflect"
)

// Handle pairs one instance with the class it was bound through, so
// members can be accessed by exposed name without repeating the class.
// Two handles are equal when they wrap the same instance.
type Handle struct {
	class    *Class
	instance any
}

// Raw returns the wrapped instance.
func (h *Handle) Raw() any { return h.instance }

// Class returns the binding container of the handle.
func (h *Handle) Class() *Class { return h.class }

// Get reads a declared field by exposed name.
func (h *Handle) Get(name string) (any, error) {
	acc := h.class.Field(name)
	if acc == nil {
		return nil, Errorf(CodeUnavailable, "class %s declares no field %s", h.class.Path(), name)
	}
	return acc.Get(h.fieldInstance(acc))
}

// GetSafe reads a declared field, substituting the exposed type's default
// value for any failure.
func (h *Handle) GetSafe(name string) any {
	acc := h.class.Field(name)
	if acc == nil {
		return nil
	}
	return acc.GetSafe(h.fieldInstance(acc))
}

// Set writes a declared field by exposed name.
func (h *Handle) Set(name string, value any) error {
	acc := h.class.Field(name)
	if acc == nil {
		return Errorf(CodeUnavailable, "class %s declares no field %s", h.class.Path(), name)
	}
	return acc.Set(h.fieldInstance(acc), value)
}

// Invoke calls a declared method by exposed name.
func (h *Handle) Invoke(name string, args ...any) (any, error) {
	acc := h.class.Method(name)
	if acc == nil {
		return nil, Errorf(CodeUnavailable, "class %s declares no method %s", h.class.Path(), name)
	}
	if acc.decl != nil && acc.decl.Mod.Static {
		return acc.Invoke(nil, args...)
	}
	return acc.Invoke(h.instance, args...)
}

// fieldInstance returns the instance to pass for a field access: nil for
// static fields, the wrapped instance otherwise.
func (h *Handle) fieldInstance(acc *FieldAccessor) any {
	if acc.decl != nil && acc.decl.Mod.Static {
		return nil
	}
	return h.instance
}

// Cast rebinds the wrapped instance under another class. The instance
// must be an instance of the target class's bound type.
func (h *Handle) Cast(target *Class) (*Handle, error) {
	return target.CreateHandle(h.instance)
}

// TryCast is Cast returning nil instead of an error on failure.
func (h *Handle) TryCast(target *Class) *Handle {
	casted, err := h.Cast(target)
	if err != nil {
		return nil
	}
	return casted
}

// Equals reports whether the other handle wraps the same instance.
func (h *Handle) Equals(other *Handle) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.instance == other.instance
}

// String defers to the wrapped instance where it can represent itself.
func (h *Handle) String() string {
	if h.instance == nil {
		return "<nil handle>"
	}
	if s, ok := h.instance.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%s@%p", reflect.TypeOf(h.instance), h.instance)
}
