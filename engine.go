// Package templar binds compact textual template declarations to concrete
// Go types at runtime. A template declares the fields, methods and
// constructors a consumer expects; the engine parses it, resolves it
// against registered types, synthesizes accessors and hands back typed
// handles. Members that fail to resolve degrade to unavailable instead of
// failing the whole template, unless they are required.
package templar

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/templar-dev/templar/conv"
	"github.com/templar-dev/templar/decl"
	"github.com/templar-dev/templar/resolver"
)

var validate = validator.New()

// Config controls engine-wide behavior. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// MaxCompositionDepth caps how many converters a composed conversion
	// chain may contain.
	MaxCompositionDepth int `validate:"gte=0,lte=16"`
	// RegisterStandardConverters installs the built-in scalar converters
	// at engine construction.
	RegisterStandardConverters bool
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return Config{
		MaxCompositionDepth:        conv.DefaultMaxDepth,
		RegisterStandardConverters: true,
	}
}

// Engine is the central binding coordinator. It owns the type registry,
// the conversion registry and the synthesis backends, and caches
// accessors so each declaration is synthesized at most once.
// Safe for concurrent use.
type Engine struct {
	mu           sync.RWMutex
	types        *resolver.Registry
	conversions  *conv.Registry
	backends     []Backend
	bodyCompiler BodyCompiler
	bootstrap    func(block string) error
	logger       *slog.Logger

	fieldCache  map[*decl.FieldDeclaration]*FieldAccessor
	methodCache map[*decl.MethodDeclaration]*MethodAccessor
	ctorCache   map[*decl.ConstructorDeclaration]*ConstructorAccessor
}

// New creates an Engine with the default configuration.
func New() *Engine {
	e, err := NewWithConfig(DefaultConfig())
	if err != nil {
		// DefaultConfig always validates.
		panic(err)
	}
	return e
}

// NewWithConfig creates an Engine with an explicit configuration.
func NewWithConfig(cfg Config) (*Engine, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, NewError(CodeInvalidConfig, "invalid engine config").WithCause(err)
	}
	e := &Engine{
		types:       resolver.New(),
		conversions: conv.NewRegistry(cfg.MaxCompositionDepth),
		backends:    []Backend{specializedBackend{}, reflectionBackend{}},
		fieldCache:  make(map[*decl.FieldDeclaration]*FieldAccessor),
		methodCache: make(map[*decl.MethodDeclaration]*MethodAccessor),
		ctorCache:   make(map[*decl.ConstructorDeclaration]*ConstructorAccessor),
	}
	if cfg.RegisterStandardConverters {
		if err := conv.RegisterStandard(e.conversions); err != nil {
			return nil, NewError(CodeInvalidConfig, "standard converters").WithCause(err)
		}
	}
	return e, nil
}

// WithLogger sets a custom logger for the engine.
// If not set, slog.Default() will be used.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
	return e
}

// WithBackend prepends a synthesis backend. Backends run in the order
// added (last added runs first); the built-in specialized and reflection
// backends always remain as the final fallbacks.
func (e *Engine) WithBackend(b Backend) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backends = append([]Backend{b}, e.backends...)
	return e
}

// WithBodyCompiler sets the compiler used for methods declared with an
// inline body. Without one, body-carrying methods stay unavailable.
func (e *Engine) WithBodyCompiler(c BodyCompiler) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodyCompiler = c
	return e
}

// WithBootstrapHandler sets the hook that runs the opaque code block of a
// #bootstrap directive when a source document is loaded. Without one,
// bootstrap blocks are logged and skipped.
func (e *Engine) WithBootstrapHandler(fn func(block string) error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bootstrap = fn
	return e
}

// Types returns the engine's type registry.
func (e *Engine) Types() *resolver.Registry { return e.types }

// Conversions returns the engine's conversion registry.
func (e *Engine) Conversions() *conv.Registry { return e.conversions }

// Logger returns the effective logger.
func (e *Engine) Logger() *slog.Logger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Reset drops all registered types, converters and cached accessors.
// Existing containers keep their bindings.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types.Reset()
	e.conversions.Reset()
	e.bodyCompiler = nil
	clear(e.fieldCache)
	clear(e.methodCache)
	clear(e.ctorCache)
}

func (e *Engine) snapshotBackends() []Backend {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Backend(nil), e.backends...)
}

// fieldAccessor returns the accessor for a bound field declaration,
// synthesizing it on first use.
func (e *Engine) fieldAccessor(d *decl.FieldDeclaration) (*FieldAccessor, error) {
	e.mu.RLock()
	cached, ok := e.fieldCache[d]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logger := e.Logger()
	acc := &FieldAccessor{decl: d, readOnly: d.Mod.ReadOnly || d.Mod.Final, logger: logger}
	if d.Available() {
		raw, err := synthesizeField(e.snapshotBackends(), d, logger)
		if err != nil {
			return nil, err
		}
		acc.raw = raw
		if d.Type.HasCast() {
			dup, err := e.fieldConverter(d)
			if err != nil {
				return nil, err
			}
			acc.converter = dup
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.fieldCache[d]; ok {
		return cached, nil
	}
	e.fieldCache[d] = acc
	return acc, nil
}

// fieldConverter finds the duplex converter a cast field needs, raw type
// to exposed type.
func (e *Engine) fieldConverter(d *decl.FieldDeclaration) (conv.DuplexConverter, error) {
	raw := d.Type.Type
	exposed := d.Type.Exposed().Type
	if raw == nil || exposed == nil {
		return nil, Errorf(CodeConversionMissing, "field %s: cast types did not resolve", d.Name)
	}
	dup, ok := e.conversions.FindDuplex(raw, exposed)
	if !ok {
		return nil, Errorf(CodeConversionMissing, "field %s: no conversion between %s and %s",
			d.Name, raw, exposed)
	}
	return dup, nil
}

// methodAccessor returns the accessor for a bound method declaration,
// synthesizing it on first use. Generated methods compile through the
// configured BodyCompiler.
func (e *Engine) methodAccessor(d *decl.MethodDeclaration, owner reflect.Type) (*MethodAccessor, error) {
	e.mu.RLock()
	cached, ok := e.methodCache[d]
	compiler := e.bodyCompiler
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logger := e.Logger()
	acc := &MethodAccessor{decl: d, logger: logger}
	if d.Available() {
		var inv Invoker
		var err error
		if d.IsGenerated() {
			if compiler == nil {
				logger.Debug("generated method has no body compiler", "method", d.Name.String())
			} else {
				inv, err = compiler.Compile(d, owner)
				if err != nil {
					return nil, Errorf(CodeGeneration, "compile %s", d.Name).WithCause(err)
				}
			}
		} else {
			inv, err = synthesizeInvoker(e.snapshotBackends(), d, logger)
			if err != nil {
				return nil, err
			}
		}
		acc.invoker = inv
		if inv != nil {
			if err := e.methodConverters(d, acc); err != nil {
				return nil, err
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.methodCache[d]; ok {
		return cached, nil
	}
	e.methodCache[d] = acc
	return acc, nil
}

// methodConverters fills in the return and per-argument converters for
// cast signature positions.
func (e *Engine) methodConverters(d *decl.MethodDeclaration, acc *MethodAccessor) error {
	if d.Returns.HasCast() && !d.Returns.IsVoid() {
		raw := d.Returns.Type
		exposed := d.Returns.Exposed().Type
		dup, ok := e.conversions.FindDuplex(raw, exposed)
		if !ok {
			return Errorf(CodeConversionMissing, "method %s: no conversion between %s and %s",
				d.Name, raw, exposed)
		}
		acc.returnCnv = dup
	}
	var argCnvs []conv.DuplexConverter
	for i, p := range d.Params {
		if !p.Type.HasCast() {
			continue
		}
		raw := p.Type.Type
		exposed := p.Type.Exposed().Type
		dup, ok := e.conversions.FindDuplex(raw, exposed)
		if !ok {
			return Errorf(CodeConversionMissing, "method %s: argument [%d]: no conversion between %s and %s",
				d.Name, i, raw, exposed)
		}
		if argCnvs == nil {
			argCnvs = make([]conv.DuplexConverter, len(d.Params))
		}
		argCnvs[i] = dup
	}
	acc.argCnvs = argCnvs
	return nil
}

// constructorAccessor returns the accessor for a bound constructor
// declaration, synthesizing it on first use.
func (e *Engine) constructorAccessor(d *decl.ConstructorDeclaration) (*ConstructorAccessor, error) {
	e.mu.RLock()
	cached, ok := e.ctorCache[d]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logger := e.Logger()
	acc := &ConstructorAccessor{decl: d, logger: logger}
	if d.Available() {
		inv, err := synthesizeConstructor(e.snapshotBackends(), d, logger)
		if err != nil {
			return nil, err
		}
		acc.invoker = inv
		var argCnvs []conv.DuplexConverter
		for i, p := range d.Params {
			if !p.Type.HasCast() {
				continue
			}
			dup, ok := e.conversions.FindDuplex(p.Type.Type, p.Type.Exposed().Type)
			if !ok {
				return nil, Errorf(CodeConversionMissing, "constructor %s: argument [%d]: no conversion between %s and %s",
					d.Name, i, p.Type.Type, p.Type.Exposed().Type)
			}
			if argCnvs == nil {
				argCnvs = make([]conv.DuplexConverter, len(d.Params))
			}
			argCnvs[i] = dup
		}
		acc.argCnvs = argCnvs
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.ctorCache[d]; ok {
		return cached, nil
	}
	e.ctorCache[d] = acc
	return acc, nil
}
