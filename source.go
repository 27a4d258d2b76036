package templar

import (
	"github.com/templar-dev/templar/decl"
)

// Source is a loaded template document: the parse result plus one bound
// container per contained class.
type Source struct {
	Declaration *decl.SourceDeclaration
	classes     map[string]*Class
}

// Class returns the bound container for the class declared under path.
func (s *Source) Class(path string) *Class { return s.classes[path] }

// Classes returns the bound containers in declaration order.
func (s *Source) Classes() []*Class {
	out := make([]*Class, 0, len(s.Declaration.Classes))
	for _, cls := range s.Declaration.Classes {
		if c, ok := s.classes[cls.Path()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// IsValid reports whether the document parsed cleanly and every
// non-optional member of every class bound.
func (s *Source) IsValid() bool {
	if !s.Declaration.IsValid() {
		return false
	}
	for _, c := range s.classes {
		if !c.IsValid() {
			return false
		}
	}
	return true
}

// LoadSource parses a template document and binds every class it
// declares. Parse errors are localized: a malformed fragment fails its
// class while the rest of the document still loads. The returned Source
// is usable even when err is non-nil; err reports the first problem.
func (e *Engine) LoadSource(text string) (*Source, error) {
	logger := e.Logger()
	src := decl.Parse(text)

	var firstErr error
	for _, perr := range src.AllErrors() {
		diag := NewError(CodeParse, "template fragment did not parse").WithCause(perr)
		logger.Warn("template parse problem", "error", diag)
		if firstErr == nil {
			firstErr = diag
		}
	}

	if src.Bootstrap != "" {
		e.mu.RLock()
		bootstrap := e.bootstrap
		e.mu.RUnlock()
		if bootstrap == nil {
			logger.Debug("bootstrap block skipped, no handler configured")
		} else if err := bootstrap(src.Bootstrap); err != nil {
			diag := NewError(CodeInvalidConfig, "bootstrap block failed").WithCause(err)
			if firstErr == nil {
				firstErr = diag
			}
		}
	}

	out := &Source{
		Declaration: src,
		classes:     make(map[string]*Class, len(src.Classes)),
	}
	for _, cls := range src.Classes {
		c := &Class{}
		c.initOnce.Do(func() { c.init(e, cls) })
		out.classes[cls.Path()] = c
		if !c.IsValid() && firstErr == nil {
			for _, diag := range c.Diagnostics() {
				firstErr = diag
				break
			}
		}
	}
	return out, firstErr
}
