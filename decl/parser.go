package decl

import (
	"fmt"
	"strings"
)

// Parse reads a template document into a SourceDeclaration. Malformed
// lines are recorded as errors against the class being parsed (or the
// document itself) and parsing continues with the remaining text, so
// partial results stay available for diagnostics. Parsing the same text
// always yields a structurally identical tree.
func Parse(text string) *SourceDeclaration {
	p := &sourceParser{lines: strings.Split(text, "\n")}
	p.run()
	return p.out
}

type sourceParser struct {
	lines []string
	pos   int

	out        *SourceDeclaration
	currentPkg string
	current    *ClassDeclaration
}

func (p *sourceParser) run() {
	p.out = &SourceDeclaration{}
	for p.pos < len(p.lines) {
		line := stripComment(p.lines[p.pos])
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == ";" {
			p.pos++
			continue
		}

		switch {
		case p.current == nil && strings.HasPrefix(trimmed, "#resolver"):
			p.out.ResolverPath = strings.TrimSpace(strings.TrimPrefix(trimmed, "#resolver"))
			p.pos++
		case p.current == nil && strings.HasPrefix(trimmed, "#bootstrap"):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#bootstrap"))
			body, err := p.captureBlock(rest)
			if err != nil {
				p.recordError(fmt.Errorf("line %d: #bootstrap: %w", p.pos+1, err))
			} else {
				p.out.Bootstrap = body
			}
		case p.current == nil && strings.HasPrefix(trimmed, "package "):
			pkg := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "package")), ";")
			p.currentPkg = strings.TrimSpace(pkg)
			p.pos++
		case p.current == nil:
			p.parseClassHeader(trimmed)
		case trimmed == "}":
			p.current = nil
			p.pos++
		default:
			p.parseMemberLine(line)
		}
	}
	if p.current != nil {
		p.recordError(fmt.Errorf("line %d: class %s: missing closing brace", p.pos, p.current.Name))
		p.current = nil
	}
}

func (p *sourceParser) recordError(err error) {
	if p.current != nil {
		p.current.recordError(err)
	} else {
		p.out.Errors = append(p.out.Errors, err)
	}
	p.pos++
}

// parseClassHeader handles `<modifiers> class Name {`.
func (p *sourceParser) parseClassHeader(trimmed string) {
	head := strings.TrimSuffix(trimmed, "{")
	l, err := newLexer(head)
	if err != nil {
		p.recordError(fmt.Errorf("line %d: %w", p.pos+1, err))
		return
	}
	mod, err := parseModifiers(l)
	if err != nil {
		p.recordError(fmt.Errorf("line %d: %w", p.pos+1, err))
		return
	}
	kw, err := l.expectIdent()
	if err != nil || kw != "class" {
		p.recordError(fmt.Errorf("line %d: expected class declaration, found %q", p.pos+1, trimmed))
		return
	}
	name, err := l.expectIdent()
	if err != nil {
		p.recordError(fmt.Errorf("line %d: class name: %w", p.pos+1, err))
		return
	}
	if !strings.HasSuffix(trimmed, "{") {
		p.recordError(fmt.Errorf("line %d: class %s: expected opening brace", p.pos+1, name))
		return
	}
	cls := &ClassDeclaration{Package: p.currentPkg, Name: name}
	cls.Valid = true
	cls.Optional = mod.mod.Optional
	p.out.Classes = append(p.out.Classes, cls)
	p.current = cls
	p.pos++
}

func (p *sourceParser) parseMemberLine(line string) {
	cls := p.current
	// capturing a block advances p.pos past the closing brace, so the
	// declaring line is recorded up front for diagnostics
	memberLine := p.pos + 1
	head := line
	body := ""
	hasBody := false
	if idx := strings.Index(line, "{"); idx >= 0 {
		head = line[:idx]
		captured, err := p.captureBlock(line[idx:])
		if err != nil {
			cls.recordError(fmt.Errorf("line %d: %w", memberLine, err))
			return
		}
		body = captured
		hasBody = true
	} else {
		p.pos++
	}
	head = strings.TrimSuffix(strings.TrimSpace(head), ";")
	if head == "" {
		cls.recordError(fmt.Errorf("line %d: member body without declaration", memberLine))
		return
	}

	requirements, body := extractRequirements(body)

	if err := parseMember(cls, head, body, hasBody, requirements); err != nil {
		cls.recordError(fmt.Errorf("line %d: %w", memberLine, err))
	}
}

// captureBlock consumes a brace-delimited block starting at the current
// line. rest is the remainder of the current line beginning with '{'.
// It returns the raw text between the outer braces and advances p.pos past
// the closing brace line.
func (p *sourceParser) captureBlock(rest string) (string, error) {
	if !strings.HasPrefix(strings.TrimSpace(rest), "{") {
		return "", fmt.Errorf("expected block opening brace, found %q", rest)
	}
	var b strings.Builder
	depth := 0
	text := rest
	for {
		for _, r := range text {
			switch r {
			case '{':
				depth++
				if depth == 1 {
					continue
				}
			case '}':
				depth--
				if depth == 0 {
					p.pos++
					return strings.TrimSpace(b.String()), nil
				}
			}
			if depth >= 1 {
				b.WriteRune(r)
			}
		}
		b.WriteRune('\n')
		p.pos++
		if p.pos >= len(p.lines) {
			return "", fmt.Errorf("unterminated block")
		}
		text = stripComment(p.lines[p.pos])
	}
}

// extractRequirements pulls `#require <declaration>;` lines out of a
// generated body. The remaining body text stays opaque.
func extractRequirements(body string) ([]Requirement, string) {
	if body == "" || !strings.Contains(body, "#require") {
		return nil, body
	}
	var reqs []Requirement
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#require") {
			kept = append(kept, line)
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, "#require"))
		text = strings.TrimSuffix(text, ";")
		req := Requirement{Text: strings.TrimSpace(text)}
		parseRequirement(&req)
		reqs = append(reqs, req)
	}
	return reqs, strings.TrimSpace(strings.Join(kept, "\n"))
}

// parseRequirement parses the referenced member declaration. A requirement
// that fails to parse keeps its raw text only.
func parseRequirement(req *Requirement) {
	l, err := newLexer(req.Text)
	if err != nil {
		return
	}
	mods, err := parseModifiers(l)
	if err != nil {
		return
	}
	td, err := parseType(l)
	if err != nil {
		return
	}
	name, err := l.expectIdent()
	if err != nil {
		return
	}
	pair := NamePair{Name: name}
	if l.accept(":") {
		if real, err := l.expectIdent(); err == nil {
			pair.Real = real
		}
	}
	if l.peek().isPunct("(") {
		params, err := parseParameters(l)
		if err != nil {
			return
		}
		req.Method = &MethodDeclaration{Name: pair, Returns: td, Params: params, Mod: mods.mod}
		return
	}
	req.Field = &FieldDeclaration{Name: pair, Type: td, Mod: mods.mod, IsEnum: mods.isEnum}
}

type modifierSet struct {
	mod    Modifiers
	isEnum bool
}

func parseModifiers(l *lexer) (modifierSet, error) {
	var out modifierSet
	for {
		t := l.peek()
		if t.kind != tokenIdent {
			return out, nil
		}
		switch t.text {
		case "public":
			out.mod.Visibility = Public
		case "private":
			out.mod.Visibility = Private
		case "protected":
			out.mod.Visibility = Protected
		case "static":
			out.mod.Static = true
		case "final":
			out.mod.Final = true
		case "optional":
			out.mod.Optional = true
		case "readonly":
			out.mod.ReadOnly = true
		case "enum":
			out.isEnum = true
		default:
			return out, nil
		}
		l.pop()
	}
}

func parseParameters(l *lexer) ([]ParameterDeclaration, error) {
	if err := l.expectPunct("("); err != nil {
		return nil, err
	}
	var params []ParameterDeclaration
	if l.accept(")") {
		return params, nil
	}
	for {
		td, err := parseType(l)
		if err != nil {
			return nil, err
		}
		name, err := l.expectIdent()
		if err != nil {
			return nil, fmt.Errorf("parameter name: %w", err)
		}
		params = append(params, ParameterDeclaration{Name: name, Type: td})
		if l.accept(",") {
			continue
		}
		if err := l.expectPunct(")"); err != nil {
			return nil, err
		}
		return params, nil
	}
}

// parseMember parses one member head (everything before the optional body)
// and appends the resulting declaration to cls.
func parseMember(cls *ClassDeclaration, head, body string, hasBody bool, reqs []Requirement) error {
	l, err := newLexer(head)
	if err != nil {
		return err
	}
	mods, err := parseModifiers(l)
	if err != nil {
		return err
	}
	td, err := parseType(l)
	if err != nil {
		return err
	}

	// A parameter list directly after the type token means a constructor.
	if l.peek().isPunct("(") {
		if td.Name != cls.Name {
			return fmt.Errorf("constructor name %q does not match class %q", td.Name, cls.Name)
		}
		params, err := parseParameters(l)
		if err != nil {
			return err
		}
		ctor := &ConstructorDeclaration{
			Name:   NamePair{Name: td.Name},
			Params: params,
			Mod:    mods.mod,
		}
		ctor.Optional = mods.mod.Optional
		cls.Constructors = append(cls.Constructors, ctor)
		return nil
	}

	name, err := l.expectIdent()
	if err != nil {
		return err
	}
	pair := NamePair{Name: name}
	if l.accept(":") {
		real, err := l.expectIdent()
		if err != nil {
			return fmt.Errorf("alias: %w", err)
		}
		pair.Real = real
	}

	if l.peek().isPunct("(") {
		params, err := parseParameters(l)
		if err != nil {
			return err
		}
		m := &MethodDeclaration{
			Name:         pair,
			Returns:      td,
			Params:       params,
			Mod:          mods.mod,
			Body:         body,
			Requirements: reqs,
		}
		m.Optional = mods.mod.Optional
		if !l.atEOF() {
			return fmt.Errorf("unexpected trailing tokens after method %s", name)
		}
		cls.Methods = append(cls.Methods, m)
		return nil
	}

	if hasBody {
		return fmt.Errorf("field %s can not declare a body", name)
	}
	f := &FieldDeclaration{Name: pair, Type: td, Mod: mods.mod, IsEnum: mods.isEnum}
	f.Optional = mods.mod.Optional
	if !l.atEOF() {
		return fmt.Errorf("unexpected trailing tokens after field %s", name)
	}
	cls.Fields = append(cls.Fields, f)
	return nil
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
