// Package resolver binds parsed declarations to concrete runtime types and
// members. Type lookup, class-declaration lookup and member name resolution
// are all pluggable, so templates can target renamed or versioned types.
package resolver

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/templar-dev/templar/decl"
)

// ClassDeclarationResolver supplies an externally sourced class declaration
// for a runtime type, used when the template text is not the sole source of
// truth. A nil result means the resolver has nothing for the type.
type ClassDeclarationResolver interface {
	ResolveClassDeclaration(path string, t reflect.Type) *decl.ClassDeclaration
}

// FieldNameResolver rewrites a declared field name into the name actually
// present on the runtime type. Returning the input name is a no-op.
type FieldNameResolver interface {
	ResolveFieldName(t reflect.Type, name string) string
}

// MethodNameResolver rewrites a declared method name, with the parameter
// types available for overload disambiguation.
type MethodNameResolver interface {
	ResolveMethodName(t reflect.Type, name string, params []reflect.Type) string
}

// typeEntry is everything registered under one template path.
type typeEntry struct {
	typ          reflect.Type
	statics      map[string]reflect.Value   // addressable values
	funcs        map[string][]reflect.Value // static methods, by name
	constructors []reflect.Value
}

// Registry is the process-wide stand-in for class loading: it maps logical
// template paths to runtime types, and carries the static member and
// constructor bindings Go types do not have on their own. It also holds the
// pluggable resolver chains. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*typeEntry
	paths   map[reflect.Type]string

	declResolvers   []ClassDeclarationResolver
	fieldResolvers  []FieldNameResolver
	methodResolvers []MethodNameResolver

	bindLocks map[*decl.ClassDeclaration]*sync.Mutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries:   make(map[string]*typeEntry),
		paths:     make(map[reflect.Type]string),
		bindLocks: make(map[*decl.ClassDeclaration]*sync.Mutex),
	}
}

// RegisterType associates a logical path with a runtime type. Struct types
// should be registered by their element type, not a pointer type.
func (r *Registry) RegisterType(path string, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("resolver: nil type for path %s", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[path]; ok && existing.typ != t {
		return fmt.Errorf("resolver: path %s already registered to %s", path, existing.typ)
	}
	r.entry(path).typ = t
	r.paths[t] = path
	return nil
}

// RegisterStatic binds a static field name under path to a package-level
// variable, given as a pointer so the binding is writable.
func (r *Registry) RegisterStatic(path, name string, ptr any) error {
	v := reflect.ValueOf(ptr)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("resolver: static %s.%s requires a non-nil pointer", path, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(path)
	if _, exists := e.statics[name]; exists {
		return fmt.Errorf("resolver: static %s.%s already registered", path, name)
	}
	e.statics[name] = v.Elem()
	return nil
}

// RegisterFunc binds a static method name under path to a function.
// Multiple functions may share a name; parameter types disambiguate.
func (r *Registry) RegisterFunc(path, name string, fn any) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("resolver: static func %s.%s is not a function", path, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(path)
	e.funcs[name] = append(e.funcs[name], v)
	return nil
}

// RegisterConstructor binds a factory function as a constructor of the
// type registered under path.
func (r *Registry) RegisterConstructor(path string, fn any) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("resolver: constructor for %s is not a function", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(path)
	e.constructors = append(e.constructors, v)
	return nil
}

// LookupType resolves a logical path to its registered runtime type.
// Absence is not an error; optionality handling decides what it means.
func (r *Registry) LookupType(path string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	if !ok || e.typ == nil {
		return nil, false
	}
	return e.typ, true
}

// PathOf returns the logical path a type was registered under.
func (r *Registry) PathOf(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.paths[t]
	return path, ok
}

// AddClassDeclarationResolver appends a class declaration source. Sources
// are consulted in registration order; the first non-nil answer wins.
func (r *Registry) AddClassDeclarationResolver(cr ClassDeclarationResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declResolvers = append(r.declResolvers, cr)
}

// AddFieldNameResolver appends a field name rewriting hook.
func (r *Registry) AddFieldNameResolver(fr FieldNameResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fieldResolvers = append(r.fieldResolvers, fr)
}

// AddMethodNameResolver appends a method name rewriting hook.
func (r *Registry) AddMethodNameResolver(mr MethodNameResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methodResolvers = append(r.methodResolvers, mr)
}

// ResolveClassDeclaration asks the registered declaration sources for a
// class declaration, in order.
func (r *Registry) ResolveClassDeclaration(path string, t reflect.Type) *decl.ClassDeclaration {
	r.mu.RLock()
	resolvers := append([]ClassDeclarationResolver(nil), r.declResolvers...)
	r.mu.RUnlock()
	for _, cr := range resolvers {
		if d := cr.ResolveClassDeclaration(path, t); d != nil {
			return d
		}
	}
	return nil
}

// ResolveFieldName runs the field name hooks over a declared name.
func (r *Registry) ResolveFieldName(t reflect.Type, name string) string {
	r.mu.RLock()
	resolvers := append([]FieldNameResolver(nil), r.fieldResolvers...)
	r.mu.RUnlock()
	for _, fr := range resolvers {
		name = fr.ResolveFieldName(t, name)
	}
	return name
}

// ResolveMethodName runs the method name hooks over a declared name.
func (r *Registry) ResolveMethodName(t reflect.Type, name string, params []reflect.Type) string {
	r.mu.RLock()
	resolvers := append([]MethodNameResolver(nil), r.methodResolvers...)
	r.mu.RUnlock()
	for _, mr := range resolvers {
		name = mr.ResolveMethodName(t, name, params)
	}
	return name
}

// Reset drops every registered type, static and resolver hook.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	clear(r.paths)
	clear(r.bindLocks)
	r.declResolvers = nil
	r.fieldResolvers = nil
	r.methodResolvers = nil
}

// bindLock returns the lock serializing resolution of one declaration.
func (r *Registry) bindLock(cls *decl.ClassDeclaration) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	mu, ok := r.bindLocks[cls]
	if !ok {
		mu = &sync.Mutex{}
		r.bindLocks[cls] = mu
	}
	return mu
}

// entry returns the entry for path, creating it if needed. Callers hold mu.
func (r *Registry) entry(path string) *typeEntry {
	e, ok := r.entries[path]
	if !ok {
		e = &typeEntry{
			statics: make(map[string]reflect.Value),
			funcs:   make(map[string][]reflect.Value),
		}
		r.entries[path] = e
	}
	return e
}

// staticOf returns the addressable value registered for a static field.
func (r *Registry) staticOf(path, name string) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	if !ok {
		return reflect.Value{}, false
	}
	v, ok := e.statics[name]
	return v, ok
}

// funcsOf returns the static functions registered under a name, in
// registration order.
func (r *Registry) funcsOf(path, name string) []reflect.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	if !ok {
		return nil
	}
	return append([]reflect.Value(nil), e.funcs[name]...)
}

// constructorsOf returns the registered constructor factories, in
// registration order.
func (r *Registry) constructorsOf(path string) []reflect.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	if !ok {
		return nil
	}
	return append([]reflect.Value(nil), e.constructors...)
}

// FieldNameResolverFunc adapts a function to the FieldNameResolver SPI.
type FieldNameResolverFunc func(t reflect.Type, name string) string

func (f FieldNameResolverFunc) ResolveFieldName(t reflect.Type, name string) string {
	return f(t, name)
}

// MethodNameResolverFunc adapts a function to the MethodNameResolver SPI.
type MethodNameResolverFunc func(t reflect.Type, name string, params []reflect.Type) string

func (f MethodNameResolverFunc) ResolveMethodName(t reflect.Type, name string, params []reflect.Type) string {
	return f(t, name, params)
}

// ClassDeclarationResolverFunc adapts a function to the SPI.
type ClassDeclarationResolverFunc func(path string, t reflect.Type) *decl.ClassDeclaration

func (f ClassDeclarationResolverFunc) ResolveClassDeclaration(path string, t reflect.Type) *decl.ClassDeclaration {
	return f(path, t)
}
