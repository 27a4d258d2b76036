package fast

import (
	"fmt"
	"reflect"
	"unsafe"
)

// FieldOps is the uniform read/write surface over one resolved field.
type FieldOps interface {
	Get(instance any) (any, error)
	Set(instance any, value any) error
}

// NewField synthesizes specialized accessors for an instance field: the
// byte offset from the struct base is computed once and reads/writes go
// through a typed load/store closure. This path also reaches unexported
// fields, which plain reflect value access refuses to surface.
func NewField(owner reflect.Type, index []int) (FieldOps, error) {
	if owner.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fast: field owner %s is not a struct", owner)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("fast: empty field index path on %s", owner)
	}
	offset := uintptr(0)
	t := owner
	var sf reflect.StructField
	for _, i := range index {
		if t.Kind() != reflect.Struct || i >= t.NumField() {
			return nil, fmt.Errorf("fast: invalid field index path %v on %s", index, owner)
		}
		sf = t.Field(i)
		offset += sf.Offset
		t = sf.Type
	}
	f := &offsetField{owner: owner, typ: sf.Type, offset: offset}
	f.get, f.set = typedAccessors(sf.Type, offset)
	return f, nil
}

// offsetField accesses a field through pointer arithmetic on the instance.
type offsetField struct {
	owner  reflect.Type
	typ    reflect.Type
	offset uintptr
	get    func(base unsafe.Pointer) any
	set    func(base unsafe.Pointer, value any) bool
}

func (f *offsetField) Get(instance any) (any, error) {
	base, err := structPointer(instance, f.owner)
	if err != nil {
		return nil, err
	}
	return f.get(base), nil
}

func (f *offsetField) Set(instance any, value any) error {
	base, err := structPointer(instance, f.owner)
	if err != nil {
		return err
	}
	if !f.set(base, value) {
		return fmt.Errorf("value of type %T can not be assigned to field of type %s", value, f.typ)
	}
	return nil
}

type fieldGetter = func(base unsafe.Pointer) any
type fieldSetter = func(base unsafe.Pointer, value any) bool

// scalarTrampoline monomorphizes a typed load/store pair over the field's
// byte offset.
func scalarTrampoline[T any](offset uintptr) (fieldGetter, fieldSetter) {
	get := func(b unsafe.Pointer) any {
		return *(*T)(unsafe.Add(b, offset))
	}
	set := func(b unsafe.Pointer, v any) bool {
		x, ok := v.(T)
		if ok {
			*(*T)(unsafe.Add(b, offset)) = x
		}
		return ok
	}
	return get, set
}

// typedAccessors returns load/store closures for the field type. The
// common scalar kinds get direct typed pointer access; everything else
// goes through a reflect.NewAt view of the same address, which is still
// offset-addressed and works for unexported fields.
func typedAccessors(t reflect.Type, offset uintptr) (fieldGetter, fieldSetter) {
	switch t {
	case reflect.TypeOf(false):
		return scalarTrampoline[bool](offset)
	case reflect.TypeOf(int(0)):
		return scalarTrampoline[int](offset)
	case reflect.TypeOf(int8(0)):
		return scalarTrampoline[int8](offset)
	case reflect.TypeOf(int16(0)):
		return scalarTrampoline[int16](offset)
	case reflect.TypeOf(int32(0)):
		return scalarTrampoline[int32](offset)
	case reflect.TypeOf(int64(0)):
		return scalarTrampoline[int64](offset)
	case reflect.TypeOf(uint(0)):
		return scalarTrampoline[uint](offset)
	case reflect.TypeOf(uint8(0)):
		return scalarTrampoline[uint8](offset)
	case reflect.TypeOf(uint16(0)):
		return scalarTrampoline[uint16](offset)
	case reflect.TypeOf(uint32(0)):
		return scalarTrampoline[uint32](offset)
	case reflect.TypeOf(uint64(0)):
		return scalarTrampoline[uint64](offset)
	case reflect.TypeOf(float32(0)):
		return scalarTrampoline[float32](offset)
	case reflect.TypeOf(float64(0)):
		return scalarTrampoline[float64](offset)
	case reflect.TypeOf(""):
		return scalarTrampoline[string](offset)
	}

	at := func(base unsafe.Pointer) unsafe.Pointer { return unsafe.Add(base, offset) }
	get := func(b unsafe.Pointer) any {
		return reflect.NewAt(t, at(b)).Elem().Interface()
	}
	set := func(b unsafe.Pointer, v any) bool {
		target := reflect.NewAt(t, at(b)).Elem()
		if v == nil {
			switch t.Kind() {
			case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
				target.Set(reflect.Zero(t))
				return true
			default:
				return false
			}
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(t) {
			return false
		}
		target.Set(rv)
		return true
	}
	return get, set
}

// NewReflectionField builds the introspection fallback for an instance
// field: every access walks the field index path through reflect.
func NewReflectionField(owner reflect.Type, index []int) FieldOps {
	return &reflectionField{owner: owner, index: index}
}

type reflectionField struct {
	owner reflect.Type
	index []int
}

func (f *reflectionField) value(instance any) (reflect.Value, error) {
	if instance == nil {
		return reflect.Value{}, &InstanceError{Declared: f.owner}
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != f.owner {
		return reflect.Value{}, &InstanceError{Declared: f.owner, Got: rv.Type()}
	}
	if rv.IsNil() {
		return reflect.Value{}, &InstanceError{Declared: f.owner}
	}
	field := rv.Elem().FieldByIndex(f.index)
	if !field.CanInterface() {
		// Unexported: re-take the field through its address.
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}
	return field, nil
}

func (f *reflectionField) Get(instance any) (any, error) {
	field, err := f.value(instance)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

func (f *reflectionField) Set(instance any, value any) error {
	field, err := f.value(instance)
	if err != nil {
		return err
	}
	if value == nil {
		switch field.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			field.Set(reflect.Zero(field.Type()))
			return nil
		default:
			return fmt.Errorf("nil can not be assigned to field of type %s", field.Type())
		}
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(field.Type()) {
		return fmt.Errorf("value of type %s can not be assigned to field of type %s", rv.Type(), field.Type())
	}
	field.Set(rv)
	return nil
}

// NewStaticField wraps the addressable value a static field binding
// resolved to.
func NewStaticField(v reflect.Value) (FieldOps, error) {
	if !v.IsValid() || !v.CanSet() {
		return nil, fmt.Errorf("fast: static field binding is not addressable")
	}
	return &staticField{value: v}, nil
}

type staticField struct {
	value reflect.Value
}

func (f *staticField) Get(instance any) (any, error) {
	if instance != nil {
		return nil, &InstanceError{Static: true, Got: reflect.TypeOf(instance)}
	}
	return f.value.Interface(), nil
}

func (f *staticField) Set(instance any, value any) error {
	if instance != nil {
		return &InstanceError{Static: true, Got: reflect.TypeOf(instance)}
	}
	if value == nil {
		switch f.value.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			f.value.Set(reflect.Zero(f.value.Type()))
			return nil
		default:
			return fmt.Errorf("nil can not be assigned to static field of type %s", f.value.Type())
		}
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(f.value.Type()) {
		return fmt.Errorf("value of type %s can not be assigned to static field of type %s", rv.Type(), f.value.Type())
	}
	f.value.Set(rv)
	return nil
}

// structPointer checks the instance discipline for field access and
// returns the struct base pointer.
func structPointer(instance any, owner reflect.Type) (unsafe.Pointer, error) {
	if instance == nil {
		return nil, &InstanceError{Declared: owner}
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != owner {
		return nil, &InstanceError{Declared: owner, Got: rv.Type()}
	}
	if rv.IsNil() {
		return nil, &InstanceError{Declared: owner}
	}
	return rv.UnsafePointer(), nil
}
