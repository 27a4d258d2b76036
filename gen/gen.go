// Package gen scans Go packages and emits template declaration skeletons
// for their exported struct types. The emitted text is a starting point:
// every field and method of a scanned type becomes a declared member, and
// the author trims and annotates from there.
package gen

import (
	"fmt"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// ClassModel is the scanned shape of one struct type.
type ClassModel struct {
	Package string // template package, the Go import path
	Name    string
	Fields  []MemberModel
	Methods []MethodModel
}

// MemberModel is one scanned field.
type MemberModel struct {
	Name     string
	Type     string // template type syntax
	Exported bool
}

// MethodModel is one scanned method.
type MethodModel struct {
	Name    string
	Returns string
	Params  []ParamModel
}

// ParamModel is one scanned method parameter.
type ParamModel struct {
	Name string
	Type string
}

// Scan loads a Go package by pattern and models every exported struct
// type in it. The pattern follows go command semantics.
func Scan(pattern, dir string) ([]ClassModel, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}
	return modelPackage(pkg), nil
}

func modelPackage(pkg *packages.Package) []ClassModel {
	scope := pkg.Types.Scope()
	names := scope.Names()
	sort.Strings(names)

	var out []ClassModel
	for _, name := range names {
		obj := scope.Lookup(name)
		tn, ok := obj.(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		out = append(out, modelClass(pkg.PkgPath, named, st))
	}
	return out
}

func modelClass(pkgPath string, named *types.Named, st *types.Struct) ClassModel {
	cls := ClassModel{Package: pkgPath, Name: named.Obj().Name()}

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Anonymous() {
			continue
		}
		cls.Fields = append(cls.Fields, MemberModel{
			Name:     f.Name(),
			Type:     templateType(f.Type()),
			Exported: f.Exported(),
		})
	}

	// The pointer method set covers value and pointer receivers.
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		fn, ok := mset.At(i).Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Variadic() {
			continue
		}
		m := MethodModel{Name: fn.Name(), Returns: returnType(sig)}
		if m.Returns == "" {
			continue // unmappable result shape
		}
		for j := 0; j < sig.Params().Len(); j++ {
			p := sig.Params().At(j)
			pname := p.Name()
			if pname == "" {
				pname = fmt.Sprintf("arg%d", j)
			}
			m.Params = append(m.Params, ParamModel{Name: pname, Type: templateType(p.Type())})
		}
		cls.Methods = append(cls.Methods, m)
	}
	return cls
}

// returnType maps a signature's results to the declared return type.
// Empty means the shape has no template equivalent.
func returnType(sig *types.Signature) string {
	res := sig.Results()
	switch res.Len() {
	case 0:
		return "void"
	case 1:
		if isErrorType(res.At(0).Type()) {
			return "void"
		}
		return templateType(res.At(0).Type())
	case 2:
		if isErrorType(res.At(1).Type()) {
			return templateType(res.At(0).Type())
		}
		return ""
	default:
		return ""
	}
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}

// templateType renders a Go type in template type syntax.
func templateType(t types.Type) string {
	switch tt := t.(type) {
	case *types.Basic:
		return tt.Name()
	case *types.Pointer:
		return "*" + templateType(tt.Elem())
	case *types.Slice:
		return templateType(tt.Elem()) + "[]"
	case *types.Named:
		obj := tt.Obj()
		if obj.Pkg() == nil {
			return obj.Name()
		}
		return obj.Pkg().Path() + "." + obj.Name()
	case *types.Interface:
		if tt.Empty() {
			return "any"
		}
	}
	return "any"
}

// Emit renders class models as a template declaration document. Unexported
// fields are included: reaching them is half the point of templates.
func Emit(classes []ClassModel) string {
	var b strings.Builder
	for i, cls := range classes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "package %s;\n\n", cls.Package)
		fmt.Fprintf(&b, "public class %s {\n", cls.Name)
		for _, f := range cls.Fields {
			// Unexported fields are already lowercase; exported ones get an
			// alias so the exposed name stays lowercase while the runtime
			// lookup still finds the Go field.
			if f.Exported {
				fmt.Fprintf(&b, "    public %s %s:%s;\n", f.Type, lowerFirst(f.Name), f.Name)
			} else {
				fmt.Fprintf(&b, "    private %s %s;\n", f.Type, f.Name)
			}
		}
		for _, m := range cls.Methods {
			var params []string
			for _, p := range m.Params {
				params = append(params, p.Type+" "+p.Name)
			}
			fmt.Fprintf(&b, "    public %s %s:%s(%s);\n",
				m.Returns, lowerFirst(m.Name), m.Name, strings.Join(params, ", "))
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
