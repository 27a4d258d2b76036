package conv

import (
	"fmt"
	"reflect"
	"sync"
)

// DefaultMaxDepth caps the composition search. Chains longer than this are
// treated as "no converter available".
const DefaultMaxDepth = 5

type typePair struct {
	in  reflect.Type
	out reflect.Type
}

// Registry stores converters keyed by their directed (input, output) type
// pair and composes missing converters by breadth-first search over the
// registered graph. Composed converters are cached under the requested
// pair. Safe for concurrent use; composed converters are pure functions of
// their inputs, so redundant cache fills under races are harmless.
type Registry struct {
	mu       sync.RWMutex
	direct   map[typePair]Converter
	edges    map[reflect.Type][]Converter // registration order preserved
	cache    map[typePair]Converter
	maxDepth int
}

// NewRegistry creates an empty registry. maxDepth bounds converter
// composition chains; zero selects DefaultMaxDepth.
func NewRegistry(maxDepth int) *Registry {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Registry{
		direct:   make(map[typePair]Converter),
		edges:    make(map[reflect.Type][]Converter),
		cache:    make(map[typePair]Converter),
		maxDepth: maxDepth,
	}
}

// Register adds a unidirectional converter. The first registration for a
// type pair wins; later ones are rejected so lookup stays deterministic.
func (r *Registry) Register(c Converter) error {
	if c == nil {
		return fmt.Errorf("conv: nil converter")
	}
	if c.Input() == nil || c.Output() == nil {
		return fmt.Errorf("conv: converter with unresolved types")
	}
	key := typePair{in: c.Input(), out: c.Output()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.direct[key]; exists {
		return fmt.Errorf("conv: converter %s -> %s already registered", key.in, key.out)
	}
	r.direct[key] = c
	r.edges[key.in] = append(r.edges[key.in], c)
	// New edges may open paths the cache decided were absent.
	clear(r.cache)
	return nil
}

// RegisterDuplex adds both directions of a duplex converter as one logical
// unit. The direction pair is validated for type compatibility here; an
// incompatible pair is a hard configuration error.
func (r *Registry) RegisterDuplex(d DuplexConverter) error {
	if d == nil {
		return fmt.Errorf("conv: nil duplex converter")
	}
	if _, err := Pair(d, d.Reverse()); err != nil {
		return err
	}
	if err := r.Register(d); err != nil {
		return err
	}
	if err := r.Register(d.Reverse()); err != nil {
		return err
	}
	return nil
}

// RegisterFunc adapts and registers a plain conversion function.
func (r *Registry) RegisterFunc(fn any) error {
	c, err := FromFunc(fn)
	if err != nil {
		return err
	}
	return r.Register(c)
}

// Find returns a converter from in to out, composing one from registered
// converters when no direct entry exists. The second result is false when
// no converter is available; that is not an error by itself.
func (r *Registry) Find(in, out reflect.Type) (Converter, bool) {
	if in == nil || out == nil {
		return nil, false
	}
	if in == out {
		return identityConverter{t: in}, true
	}
	key := typePair{in: in, out: out}

	r.mu.RLock()
	if c, ok := r.direct[key]; ok {
		r.mu.RUnlock()
		return c, true
	}
	if c, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return c, true
	}
	r.mu.RUnlock()

	composed, ok := r.compose(in, out)
	if !ok {
		return nil, false
	}
	r.mu.Lock()
	r.cache[key] = composed
	r.mu.Unlock()
	return composed, true
}

// FindDuplex returns a two-way converter between a and b. A registered
// duplex converter for the pair is preferred; otherwise both directions
// are located (or composed) independently and paired.
func (r *Registry) FindDuplex(a, b reflect.Type) (DuplexConverter, bool) {
	forward, ok := r.Find(a, b)
	if !ok {
		return nil, false
	}
	if d, ok := forward.(DuplexConverter); ok {
		return d, true
	}
	backward, ok := r.Find(b, a)
	if !ok {
		return nil, false
	}
	d, err := Pair(forward, backward)
	if err != nil {
		return nil, false
	}
	return d, true
}

// compose searches breadth-first for a conversion path from in to out.
// Visited types are skipped, so registration cycles terminate, and paths
// longer than maxDepth are abandoned.
func (r *Registry) compose(in, out reflect.Type) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type searchNode struct {
		t    reflect.Type
		path []Converter
	}
	visited := map[reflect.Type]bool{in: true}
	queue := []searchNode{{t: in}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if len(node.path) >= r.maxDepth {
			continue
		}
		for _, edge := range r.edges[node.t] {
			next := edge.Output()
			if visited[next] {
				continue
			}
			path := make([]Converter, len(node.path), len(node.path)+1)
			copy(path, node.path)
			path = append(path, edge)
			if next == out {
				return &composedConverter{steps: path}, true
			}
			visited[next] = true
			queue = append(queue, searchNode{t: next, path: path})
		}
	}
	return nil, false
}

// Reset drops every registered converter and cached composition. Intended
// for long-running processes that rebuild their conversion graph.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.direct)
	clear(r.edges)
	clear(r.cache)
}

// Size returns the number of directly registered converters.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.direct)
}
