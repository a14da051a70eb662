// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package selector

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// MaxNestingDepth is the maximum nesting of negations and groups.
const MaxNestingDepth = 32

// Library fields a selector can compare.
const (
	FieldName = "name"
	FieldKind = "kind"
	FieldPath = "path"
	// FieldProperty prefixes a resolved library property: prop.author.
	FieldProperty = "prop"
)

var parser *participle.Parser[Expr]

func init() {
	var err error
	parser, err = newParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build selector parser: %v", err))
	}
}

// PropertySource resolves library properties.
type PropertySource interface {
	Property(lib *library.Library, prop string) (string, error)
}

// Selector is a compiled selector expression.
type Selector struct {
	expr  *Expr
	globs map[*Match]glob.Glob
}

// Parse compiles a selector. An empty or blank expression selects every
// library.
func Parse(src string) (*Selector, error) {
	s := &Selector{globs: make(map[*Match]glob.Glob)}
	if strings.TrimSpace(src) == "" {
		return s, nil
	}
	expr, err := parser.ParseString("", src)
	if err != nil {
		return nil, oops.In("selector").Code(bridge.StatusInvalidArg.Code()).
			With("selector", src).Wrapf(err, "parsing selector")
	}
	if err := s.compile(expr, 0); err != nil {
		return nil, oops.In("selector").Code(bridge.StatusInvalidArg.Code()).
			With("selector", src).Wrap(err)
	}
	s.expr = expr
	return s, nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Selector {
	s, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Selector) compile(e *Expr, depth int) error {
	if depth > MaxNestingDepth {
		return fmt.Errorf("nesting depth exceeds maximum of %d", MaxNestingDepth)
	}
	for _, a := range e.Or {
		for _, u := range a.And {
			if err := s.compileUnary(u, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Selector) compileUnary(u *Unary, depth int) error {
	switch {
	case u.Not != nil:
		if depth+1 > MaxNestingDepth {
			return fmt.Errorf("nesting depth exceeds maximum of %d", MaxNestingDepth)
		}
		return s.compileUnary(u.Not, depth+1)
	case u.Group != nil:
		return s.compile(u.Group, depth+1)
	case u.Match != nil:
		return s.compileMatch(u.Match)
	}
	return nil
}

func (s *Selector) compileMatch(m *Match) error {
	switch {
	case len(m.Field) == 1 && (m.Field[0] == FieldName || m.Field[0] == FieldKind || m.Field[0] == FieldPath):
	case len(m.Field) >= 2 && m.Field[0] == FieldProperty:
	default:
		return fmt.Errorf("%s: unknown field %q", m.Pos, strings.Join(m.Field, "."))
	}
	if m.Field[0] == FieldKind && m.Op != "~=" {
		if _, err := library.ParseKind(m.Value); err != nil {
			return fmt.Errorf("%s: %w", m.Pos, err)
		}
	}
	if m.Op == "~=" {
		g, err := glob.Compile(m.Value)
		if err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", m.Pos, m.Value, err)
		}
		s.globs[m] = g
	}
	return nil
}

// String renders the selector in canonical form.
func (s *Selector) String() string {
	if s.expr == nil {
		return ""
	}
	return s.expr.String()
}

// Match reports whether lib is selected. props resolves prop.* fields and
// may be nil when the selector does not use them.
func (s *Selector) Match(props PropertySource, lib *library.Library) bool {
	if s.expr == nil {
		return true
	}
	return s.eval(s.expr, props, lib)
}

// Predicate adapts the selector to Registry.List.
func (s *Selector) Predicate(props PropertySource) func(*library.Library) bool {
	return func(lib *library.Library) bool { return s.Match(props, lib) }
}

func (s *Selector) eval(e *Expr, props PropertySource, lib *library.Library) bool {
	for _, a := range e.Or {
		ok := true
		for _, u := range a.And {
			if !s.evalUnary(u, props, lib) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (s *Selector) evalUnary(u *Unary, props PropertySource, lib *library.Library) bool {
	switch {
	case u.Not != nil:
		return !s.evalUnary(u.Not, props, lib)
	case u.Group != nil:
		return s.eval(u.Group, props, lib)
	case u.Match != nil:
		return s.evalMatch(u.Match, props, lib)
	}
	return false
}

func (s *Selector) evalMatch(m *Match, props PropertySource, lib *library.Library) bool {
	v, ok := field(m.Field, props, lib)
	switch m.Op {
	case "==":
		return ok && v == m.Value
	case "!=":
		return !ok || v != m.Value
	case "~=":
		return ok && s.globs[m].Match(v)
	}
	return false
}

func field(path []string, props PropertySource, lib *library.Library) (string, bool) {
	switch path[0] {
	case FieldName:
		return lib.Name(), true
	case FieldKind:
		return lib.Kind().String(), true
	case FieldPath:
		return lib.Path(), true
	case FieldProperty:
		if props == nil {
			return "", false
		}
		v, err := props.Property(lib, strings.Join(path[1:], "."))
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}
