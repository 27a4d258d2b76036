package resolver

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/templar-dev/templar/decl"
)

// builtinTypes are the type names every template can use unqualified.
var builtinTypes = map[string]reflect.Type{
	"bool":       reflect.TypeOf(false),
	"string":     reflect.TypeOf(""),
	"String":     reflect.TypeOf(""),
	"int":        reflect.TypeOf(int(0)),
	"int8":       reflect.TypeOf(int8(0)),
	"int16":      reflect.TypeOf(int16(0)),
	"int32":      reflect.TypeOf(int32(0)),
	"int64":      reflect.TypeOf(int64(0)),
	"long":       reflect.TypeOf(int64(0)),
	"uint":       reflect.TypeOf(uint(0)),
	"uint8":      reflect.TypeOf(uint8(0)),
	"uint16":     reflect.TypeOf(uint16(0)),
	"uint32":     reflect.TypeOf(uint32(0)),
	"uint64":     reflect.TypeOf(uint64(0)),
	"byte":       reflect.TypeOf(byte(0)),
	"rune":       reflect.TypeOf(rune(0)),
	"float32":    reflect.TypeOf(float32(0)),
	"float64":    reflect.TypeOf(float64(0)),
	"double":     reflect.TypeOf(float64(0)),
	"any":        reflect.TypeOf((*any)(nil)).Elem(),
	"Object":     reflect.TypeOf((*any)(nil)).Elem(),
	"error":      reflect.TypeOf((*error)(nil)).Elem(),
	"duration":   reflect.TypeOf(time.Duration(0)),
	"url.Values": reflect.TypeOf(url.Values(nil)),
}

// ResolveType fills in the runtime type of a type declaration, including
// its cast type. pkg qualifies bare names that are not builtins.
func (r *Registry) ResolveType(td *decl.TypeDeclaration, pkg string) error {
	if td.Type != nil {
		return nil
	}
	if td.IsVoid() {
		return nil
	}
	base, err := r.resolveBase(td.Name, pkg)
	if err != nil {
		return err
	}
	for i := 0; i < td.ArrayRank; i++ {
		base = reflect.SliceOf(base)
	}
	td.Type = base
	if td.Cast != nil {
		if err := r.ResolveType(td.Cast, pkg); err != nil {
			return fmt.Errorf("cast type: %w", err)
		}
	}
	return nil
}

func (r *Registry) resolveBase(name, pkg string) (reflect.Type, error) {
	if strings.HasPrefix(name, "*") {
		elem, err := r.resolveBase(strings.TrimPrefix(name, "*"), pkg)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	}
	if t, ok := builtinTypes[name]; ok {
		return t, nil
	}
	if t, ok := r.LookupType(name); ok {
		return t, nil
	}
	if pkg != "" && !strings.Contains(name, ".") {
		if t, ok := r.LookupType(pkg + "." + name); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("type %q is not registered", name)
}

// resolveParams resolves the raw types of a parameter list.
func (r *Registry) resolveParams(params []decl.ParameterDeclaration, pkg string) ([]reflect.Type, error) {
	types := make([]reflect.Type, len(params))
	for i := range params {
		if err := r.ResolveType(&params[i].Type, pkg); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", params[i].Name, err)
		}
		types[i] = params[i].Type.Type
	}
	return types, nil
}
