// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package selector parses library selector expressions such as
//
//	kind == middleware and not name ~= "test*"
//	prop.author == "NYSE" or (kind == payload and path ~= "/opt/*")
//
// into predicates over loaded libraries.
package selector

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var selectorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "OpEq", Pattern: `==`},
	{Name: "OpNe", Pattern: `!=`},
	{Name: "OpGlob", Pattern: `~=`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr is a disjunction of conjunctions.
//
// Grammar: and_expr { "or" and_expr }
type Expr struct {
	Pos lexer.Position `parser:""`
	Or  []*AndExpr     `parser:"@@ ('or' @@)*"`
}

// AndExpr is a conjunction of unary terms.
type AndExpr struct {
	Pos lexer.Position `parser:""`
	And []*Unary       `parser:"@@ ('and' @@)*"`
}

// Unary is a negation, a parenthesised expression or a comparison.
type Unary struct {
	Pos   lexer.Position `parser:""`
	Not   *Unary         `parser:"  'not' @@"`
	Group *Expr          `parser:"| '(' @@ ')'"`
	Match *Match         `parser:"| @@"`
}

// Match compares a library field with a value.
type Match struct {
	Pos   lexer.Position `parser:""`
	Field []string       `parser:"@Ident (Dot @Ident)*"`
	Op    string         `parser:"@(OpEq | OpNe | OpGlob)"`
	Value string         `parser:"@(String | Ident)"`
}

// String renders the expression in canonical form.
func (e *Expr) String() string {
	parts := make([]string, len(e.Or))
	for i, a := range e.Or {
		parts[i] = a.String()
	}
	return strings.Join(parts, " or ")
}

func (a *AndExpr) String() string {
	parts := make([]string, len(a.And))
	for i, u := range a.And {
		parts[i] = u.String()
	}
	return strings.Join(parts, " and ")
}

func (u *Unary) String() string {
	switch {
	case u.Not != nil:
		return "not " + u.Not.String()
	case u.Group != nil:
		return "(" + u.Group.String() + ")"
	case u.Match != nil:
		return u.Match.String()
	}
	return ""
}

func (m *Match) String() string {
	return strings.Join(m.Field, ".") + " " + m.Op + " " + `"` + m.Value + `"`
}

func newParser() (*participle.Parser[Expr], error) {
	return participle.Build[Expr](
		participle.Lexer(selectorLexer),
		participle.Unquote("String"),
	)
}
