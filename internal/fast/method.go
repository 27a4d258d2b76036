package fast

import (
	"fmt"
	"reflect"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// NewInvoker synthesizes a specialized invoker around a resolved callable:
// the function value, parameter set and receiver handling are fixed up
// front, so a call only checks arguments and dispatches. fn must be a
// non-variadic func; for instance methods it is the method func with the
// receiver as first parameter.
func NewInvoker(fn reflect.Value, owner reflect.Type, static bool) (Invoker, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("fast: invoker target is not a function")
	}
	t := fn.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("fast: variadic members can not be specialized")
	}
	skip := 0
	var recv reflect.Type
	if !static {
		if t.NumIn() == 0 {
			return nil, fmt.Errorf("fast: instance member func lacks a receiver parameter")
		}
		recv = t.In(0)
		skip = 1
	}
	params := make([]reflect.Type, t.NumIn()-skip)
	for i := range params {
		params[i] = t.In(i + skip)
	}
	inv := &funcInvoker{
		fn:     fn,
		owner:  owner,
		static: static,
		recv:   recv,
		params: params,
	}
	inv.self = inv
	return inv, nil
}

// funcInvoker is the specialized invoker: one cached func value plus
// precomputed parameter metadata.
type funcInvoker struct {
	vaBase
	fn     reflect.Value
	owner  reflect.Type
	static bool
	recv   reflect.Type
	params []reflect.Type
}

func (inv *funcInvoker) InvokeVA(instance any, args ...any) (result any, err error) {
	in := make([]reflect.Value, 0, len(inv.params)+1)
	if inv.static {
		if instance != nil {
			return nil, &InstanceError{Static: true, Got: reflect.TypeOf(instance)}
		}
	} else {
		recv, rerr := receiverValue(instance, inv.owner, inv.recv)
		if rerr != nil {
			return nil, rerr
		}
		in = append(in, recv)
	}
	if len(args) != len(inv.params) {
		return nil, &ArgCountError{Expected: len(inv.params), Actual: len(args)}
	}
	for i, arg := range args {
		av, aerr := argValue(arg, inv.params[i], i)
		if aerr != nil {
			return nil, aerr
		}
		in = append(in, av)
	}
	defer func() {
		if r := recover(); r != nil {
			err = classifyPanic(r)
		}
	}()
	return unwrapResults(inv.fn.Call(in))
}

// NewReflectionInvoker builds the generic introspection fallback for an
// instance method: the method is looked up by name on every call. It
// services the same interface as the specialized invoker.
func NewReflectionInvoker(owner reflect.Type, name string, paramCount int) Invoker {
	inv := &reflectionInvoker{owner: owner, name: name, paramCount: paramCount}
	inv.self = inv
	return inv
}

type reflectionInvoker struct {
	vaBase
	owner      reflect.Type
	name       string
	paramCount int
}

func (inv *reflectionInvoker) InvokeVA(instance any, args ...any) (result any, err error) {
	if instance == nil {
		return nil, &InstanceError{Declared: inv.owner}
	}
	rv := reflect.ValueOf(instance)
	method := rv.MethodByName(inv.name)
	if !method.IsValid() {
		return nil, &InstanceError{Declared: inv.owner, Got: rv.Type()}
	}
	mt := method.Type()
	if len(args) != inv.paramCount || mt.NumIn() != inv.paramCount {
		return nil, &ArgCountError{Expected: inv.paramCount, Actual: len(args)}
	}
	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		av, aerr := argValue(arg, mt.In(i), i)
		if aerr != nil {
			return nil, aerr
		}
		in = append(in, av)
	}
	defer func() {
		if r := recover(); r != nil {
			err = classifyPanic(r)
		}
	}()
	return unwrapResults(method.Call(in))
}

// NewConstructor builds an invoker for a constructor binding. A zero fn
// selects the default construction path returning a fresh *T.
func NewConstructor(owner reflect.Type, fn reflect.Value) (Invoker, error) {
	if !fn.IsValid() {
		inv := &zeroConstructor{owner: owner}
		inv.self = inv
		return inv, nil
	}
	return NewInvoker(fn, owner, true)
}

type zeroConstructor struct {
	vaBase
	owner reflect.Type
}

func (inv *zeroConstructor) InvokeVA(instance any, args ...any) (any, error) {
	if instance != nil {
		return nil, &InstanceError{Static: true, Got: reflect.TypeOf(instance)}
	}
	if len(args) != 0 {
		return nil, &ArgCountError{Expected: 0, Actual: len(args)}
	}
	return reflect.New(inv.owner).Interface(), nil
}

// receiverValue checks the instance discipline for member calls.
func receiverValue(instance any, owner, recv reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Value{}, &InstanceError{Declared: owner}
	}
	rv := reflect.ValueOf(instance)
	if !rv.Type().AssignableTo(recv) {
		return reflect.Value{}, &InstanceError{Declared: owner, Got: rv.Type()}
	}
	return rv, nil
}

// argValue converts one call argument, producing errors that name the
// parameter position and expectation.
func argValue(arg any, param reflect.Type, index int) (reflect.Value, error) {
	if arg == nil {
		switch param.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(param), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil can not be assigned to %s argument [%d]", param, index)
		}
	}
	rv := reflect.ValueOf(arg)
	if !rv.Type().AssignableTo(param) {
		return reflect.Value{}, fmt.Errorf("value of type %s can not be assigned to %s argument [%d]", rv.Type(), param, index)
	}
	return rv, nil
}

// unwrapResults maps call results onto (value, error). A non-nil trailing
// error result is surfaced directly as the original cause.
func unwrapResults(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			return nil, errFromValue(out[0])
		}
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1]
		if last.Type() == errType {
			if err := errFromValue(last); err != nil {
				return nil, err
			}
			return out[0].Interface(), nil
		}
		return out[0].Interface(), nil
	}
}

func errFromValue(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// classifyPanic keeps an underlying error intact and wraps anything that
// can not be classified.
func classifyPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("invocation panicked: %v", r)
}
