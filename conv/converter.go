// Package conv implements the value conversion layer: converters between
// type pairs, duplex (mutually inverse) converters, and a registry that
// composes missing converters by path search over the registered graph.
//
// Conversion failure is never an error condition here. Convert returns a
// second result reporting success; callers decide whether absence matters
// and typically fall back to the target type's zero value.
package conv

import (
	"fmt"
	"reflect"
)

// Converter transforms values of one type into another. Implementations
// must be stateless: the same input always yields the same output.
type Converter interface {
	// Input is the type accepted by Convert.
	Input() reflect.Type
	// Output is the type produced by Convert.
	Output() reflect.Type
	// Convert transforms value. ok is false when the value can not be
	// converted; no error is raised for unconvertible runtime values.
	Convert(value any) (result any, ok bool)
}

// New builds a Converter from a typed conversion function.
func New[A, B any](fn func(A) (B, bool)) Converter {
	var a A
	var b B
	return &funcConverter{
		in:  reflect.TypeOf(&a).Elem(),
		out: reflect.TypeOf(&b).Elem(),
		fn: func(value any) (any, bool) {
			av, ok := value.(A)
			if !ok {
				return nil, false
			}
			bv, ok := fn(av)
			if !ok {
				return nil, false
			}
			return bv, true
		},
	}
}

type funcConverter struct {
	in, out reflect.Type
	fn      func(any) (any, bool)
}

func (c *funcConverter) Input() reflect.Type  { return c.in }
func (c *funcConverter) Output() reflect.Type { return c.out }

func (c *funcConverter) Convert(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	return c.fn(value)
}

func (c *funcConverter) String() string {
	return fmt.Sprintf("Converter[%s -> %s]", c.in, c.out)
}

// FromFunc adapts a plain conversion function discovered at runtime.
// Accepted shapes, inspected through reflection:
//
//	func(A) B
//	func(A) (B, bool)
//	func(A) (B, error)
func FromFunc(fn any) (Converter, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("conv: %T is not a function", fn)
	}
	if t.NumIn() != 1 || t.NumOut() < 1 || t.NumOut() > 2 {
		return nil, fmt.Errorf("conv: %s is not a recognizable converter function", t)
	}
	hasBool, hasErr := false, false
	if t.NumOut() == 2 {
		switch last := t.Out(1); {
		case last.Kind() == reflect.Bool:
			hasBool = true
		case last == errorType:
			hasErr = true
		default:
			return nil, fmt.Errorf("conv: %s second result must be bool or error", t)
		}
	}
	in, out := t.In(0), t.Out(0)
	return &funcConverter{
		in:  in,
		out: out,
		fn: func(value any) (any, bool) {
			rv := reflect.ValueOf(value)
			if !rv.Type().AssignableTo(in) {
				return nil, false
			}
			results := v.Call([]reflect.Value{rv})
			switch {
			case hasBool && !results[1].Bool():
				return nil, false
			case hasErr && !results[1].IsNil():
				return nil, false
			}
			return results[0].Interface(), true
		},
	}, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Default returns the fallback value for a conversion target: the type's
// zero value.
func Default(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// identityConverter passes values through unchanged.
type identityConverter struct {
	t reflect.Type
}

func (c identityConverter) Input() reflect.Type  { return c.t }
func (c identityConverter) Output() reflect.Type { return c.t }

func (c identityConverter) Convert(value any) (any, bool) {
	return value, value != nil
}

// composedConverter chains converters found by the registry's path search.
type composedConverter struct {
	steps []Converter
}

func (c *composedConverter) Input() reflect.Type  { return c.steps[0].Input() }
func (c *composedConverter) Output() reflect.Type { return c.steps[len(c.steps)-1].Output() }

func (c *composedConverter) Convert(value any) (any, bool) {
	current := value
	for _, step := range c.steps {
		next, ok := step.Convert(current)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}
