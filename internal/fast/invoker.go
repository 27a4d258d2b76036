// Package fast synthesizes direct accessors and invokers for resolved
// members. Synthesis builds closures over precomputed offsets and cached
// function values; when a member shape can not be specialized the caller
// falls back to the purely reflective implementations, which behave
// identically behind the same interfaces.
package fast

import (
	"fmt"
	"reflect"
)

// Invoker calls one resolved method or constructor. The fixed-arity shapes
// exist for call sites with a known argument count; InvokeVA always exists
// and agrees with them on identical input.
type Invoker interface {
	Invoke0(instance any) (any, error)
	Invoke1(instance, a0 any) (any, error)
	Invoke2(instance, a0, a1 any) (any, error)
	Invoke3(instance, a0, a1, a2 any) (any, error)
	Invoke4(instance, a0, a1, a2, a3 any) (any, error)
	Invoke5(instance, a0, a1, a2, a3, a4 any) (any, error)
	InvokeVA(instance any, args ...any) (any, error)
}

// Call dispatches to the fixed-arity shape matching len(args), falling
// back to the variable-arity shape for longer argument lists.
func Call(inv Invoker, instance any, args []any) (any, error) {
	switch len(args) {
	case 0:
		return inv.Invoke0(instance)
	case 1:
		return inv.Invoke1(instance, args[0])
	case 2:
		return inv.Invoke2(instance, args[0], args[1])
	case 3:
		return inv.Invoke3(instance, args[0], args[1], args[2])
	case 4:
		return inv.Invoke4(instance, args[0], args[1], args[2], args[3])
	case 5:
		return inv.Invoke5(instance, args[0], args[1], args[2], args[3], args[4])
	default:
		return inv.InvokeVA(instance, args...)
	}
}

// ArgCountError reports an invocation with the wrong number of arguments.
type ArgCountError struct {
	Expected int
	Actual   int
}

func (e *ArgCountError) Error() string {
	return fmt.Sprintf("invalid number of arguments: expected %d, actual %d", e.Expected, e.Actual)
}

// InstanceError reports a violated static/instance discipline.
type InstanceError struct {
	Static   bool
	Declared reflect.Type
	Got      reflect.Type
}

func (e *InstanceError) Error() string {
	if e.Static {
		return fmt.Sprintf("instance must be nil for static members, got %s", e.Got)
	}
	if e.Got == nil {
		return fmt.Sprintf("instance must be a non-nil %s", reflect.PointerTo(e.Declared))
	}
	return fmt.Sprintf("instance of type %s is not assignable to %s", e.Got, reflect.PointerTo(e.Declared))
}

// vaBase adapts the fixed-arity shapes onto InvokeVA. Invoker
// implementations embed it and override shapes they specialize.
type vaBase struct {
	self Invoker
}

func (b *vaBase) Invoke0(instance any) (any, error) {
	return b.self.InvokeVA(instance)
}
func (b *vaBase) Invoke1(instance, a0 any) (any, error) {
	return b.self.InvokeVA(instance, a0)
}
func (b *vaBase) Invoke2(instance, a0, a1 any) (any, error) {
	return b.self.InvokeVA(instance, a0, a1)
}
func (b *vaBase) Invoke3(instance, a0, a1, a2 any) (any, error) {
	return b.self.InvokeVA(instance, a0, a1, a2)
}
func (b *vaBase) Invoke4(instance, a0, a1, a2, a3 any) (any, error) {
	return b.self.InvokeVA(instance, a0, a1, a2, a3)
}
func (b *vaBase) Invoke5(instance, a0, a1, a2, a3, a4 any) (any, error) {
	return b.self.InvokeVA(instance, a0, a1, a2, a3, a4)
}
