package templar

import (
	"log/slog"
	"reflect"

	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/internal/fast"
)

// Backend produces raw accessors and invokers for bound declarations.
// A backend may refuse any member by returning an error with code
// generation_failure; the engine then falls back to the introspection
// backend, which accepts every bindable member.
type Backend interface {
	// Name identifies the backend in diagnostics.
	Name() string
	// SynthesizeField produces a raw accessor for a bound field.
	SynthesizeField(d *decl.FieldDeclaration) (RawField, error)
	// SynthesizeInvoker produces an invoker for a bound method.
	SynthesizeInvoker(d *decl.MethodDeclaration) (Invoker, error)
	// SynthesizeConstructor produces an invoker for a bound constructor.
	SynthesizeConstructor(d *decl.ConstructorDeclaration) (Invoker, error)
}

// BodyCompiler compiles declarations carrying an inline body into
// invokers. Bodies are opaque to the engine; without a compiler a
// body-carrying method stays unavailable while the rest of its class
// binds normally.
type BodyCompiler interface {
	Compile(d *decl.MethodDeclaration, owner reflect.Type) (Invoker, error)
}

// BodyCompilerFunc adapts a function to the BodyCompiler interface.
type BodyCompilerFunc func(d *decl.MethodDeclaration, owner reflect.Type) (Invoker, error)

func (f BodyCompilerFunc) Compile(d *decl.MethodDeclaration, owner reflect.Type) (Invoker, error) {
	return f(d, owner)
}

// specializedBackend synthesizes offset-addressed field accessors and
// precompiled invokers. It refuses shapes the synthesis layer can not
// specialize; the engine recovers with the reflection backend.
type specializedBackend struct{}

func (specializedBackend) Name() string { return "specialized" }

func (specializedBackend) SynthesizeField(d *decl.FieldDeclaration) (RawField, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "field %s has no binding", d.Name)
	}
	if b.Static.IsValid() {
		ops, err := fast.NewStaticField(b.Static)
		if err != nil {
			return nil, Errorf(CodeGeneration, "field %s", d.Name).WithCause(err)
		}
		return ops, nil
	}
	ops, err := fast.NewField(b.Owner, b.Index)
	if err != nil {
		return nil, Errorf(CodeGeneration, "field %s", d.Name).WithCause(err)
	}
	return ops, nil
}

func (specializedBackend) SynthesizeInvoker(d *decl.MethodDeclaration) (Invoker, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "method %s has no binding", d.Name)
	}
	inv, err := fast.NewInvoker(b.Func, b.Owner, d.Mod.Static)
	if err != nil {
		return nil, Errorf(CodeGeneration, "method %s", d.Name).WithCause(err)
	}
	return invokerAdapter{inv: inv}, nil
}

func (specializedBackend) SynthesizeConstructor(d *decl.ConstructorDeclaration) (Invoker, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "constructor %s has no binding", d.Name)
	}
	inv, err := fast.NewConstructor(b.Owner, b.Func)
	if err != nil {
		return nil, Errorf(CodeGeneration, "constructor %s", d.Name).WithCause(err)
	}
	return invokerAdapter{inv: inv}, nil
}

// reflectionBackend is the introspection fallback. It never refuses a
// bound member and trades call speed for universality.
type reflectionBackend struct{}

func (reflectionBackend) Name() string { return "reflection" }

func (reflectionBackend) SynthesizeField(d *decl.FieldDeclaration) (RawField, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "field %s has no binding", d.Name)
	}
	if b.Static.IsValid() {
		ops, err := fast.NewStaticField(b.Static)
		if err != nil {
			return nil, Errorf(CodeGeneration, "field %s", d.Name).WithCause(err)
		}
		return ops, nil
	}
	return fast.NewReflectionField(b.Owner, b.Index), nil
}

func (reflectionBackend) SynthesizeInvoker(d *decl.MethodDeclaration) (Invoker, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "method %s has no binding", d.Name)
	}
	if d.Mod.Static {
		// Static funcs have no name to look up on an instance; the
		// precompiled path is the reflective path.
		inv, err := fast.NewInvoker(b.Func, b.Owner, true)
		if err != nil {
			return nil, Errorf(CodeGeneration, "method %s", d.Name).WithCause(err)
		}
		return invokerAdapter{inv: inv}, nil
	}
	inv := fast.NewReflectionInvoker(b.Owner, b.Method.Name, len(d.Params))
	return invokerAdapter{inv: inv}, nil
}

func (reflectionBackend) SynthesizeConstructor(d *decl.ConstructorDeclaration) (Invoker, error) {
	b := d.Binding
	if b == nil {
		return nil, Errorf(CodeGeneration, "constructor %s has no binding", d.Name)
	}
	inv, err := fast.NewConstructor(b.Owner, b.Func)
	if err != nil {
		return nil, Errorf(CodeGeneration, "constructor %s", d.Name).WithCause(err)
	}
	return invokerAdapter{inv: inv}, nil
}

// synthesizeField runs the backend chain for one field, falling back to
// reflection on generation failure. Failures of earlier backends are
// logged and recovered, never surfaced.
func synthesizeField(backends []Backend, d *decl.FieldDeclaration, logger *slog.Logger) (RawField, error) {
	var last error
	for _, b := range backends {
		raw, err := b.SynthesizeField(d)
		if err == nil {
			return raw, nil
		}
		if CodeOf(err) != CodeGeneration {
			return nil, err
		}
		logger.Debug("field synthesis fell through",
			"backend", b.Name(), "field", d.Name.String(), "error", err)
		last = err
	}
	return nil, last
}

func synthesizeInvoker(backends []Backend, d *decl.MethodDeclaration, logger *slog.Logger) (Invoker, error) {
	var last error
	for _, b := range backends {
		inv, err := b.SynthesizeInvoker(d)
		if err == nil {
			return inv, nil
		}
		if CodeOf(err) != CodeGeneration {
			return nil, err
		}
		logger.Debug("method synthesis fell through",
			"backend", b.Name(), "method", d.Name.String(), "error", err)
		last = err
	}
	return nil, last
}

func synthesizeConstructor(backends []Backend, d *decl.ConstructorDeclaration, logger *slog.Logger) (Invoker, error) {
	var last error
	for _, b := range backends {
		inv, err := b.SynthesizeConstructor(d)
		if err == nil {
			return inv, nil
		}
		if CodeOf(err) != CodeGeneration {
			return nil, err
		}
		logger.Debug("constructor synthesis fell through",
			"backend", b.Name(), "error", err)
		last = err
	}
	return nil, last
}
