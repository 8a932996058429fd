// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package dsl defines the AST for handler constraint expressions and
// provides a parser built with participle. Script pack manifests declare
// one expression per positional event argument; the compiler lowers them to
// world constraints.
package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer defines the token types for constraint expressions. The ULID
// rule must precede Int so a reference starting with digits is not split.
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "ULID", Pattern: `[0-9A-HJKMNP-TV-Z]{26}`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-z_][a-z0-9_]*`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr is a single constraint expression.
//
// Grammar:
//
//	expr = "any" | "self"
//	     | "proto" "(" ULID ")"
//	     | "quest" "(" string "," int ")"
//	     | "race" "(" string ")"
//	     | "equipped" "(" ULID ")"
type Expr struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Any      bool           `parser:"  @'any'" json:"any,omitempty"`
	Self     bool           `parser:"| @'self'" json:"self,omitempty"`
	Proto    *RefArg        `parser:"| 'proto' '(' @@ ')'" json:"proto,omitempty"`
	Quest    *QuestArg      `parser:"| 'quest' '(' @@ ')'" json:"quest,omitempty"`
	Race     *RaceArg       `parser:"| 'race' '(' @@ ')'" json:"race,omitempty"`
	Equipped *RefArg        `parser:"| 'equipped' '(' @@ ')'" json:"equipped,omitempty"`
}

// RefArg is an entity reference argument.
type RefArg struct {
	Ref string `parser:"@ULID" json:"ref"`
}

// QuestArg names a quest and the phase the argument entity must be in.
type QuestArg struct {
	Name  string `parser:"@String" json:"name"`
	Phase int64  `parser:"',' @Int" json:"phase"`
}

// RaceArg names the race the argument entity must belong to.
type RaceArg struct {
	Name string `parser:"@String" json:"name"`
}

// NewParser constructs a participle parser for the constraint grammar.
func NewParser() (*participle.Parser[Expr], error) {
	return participle.Build[Expr](
		participle.Lexer(dslLexer),
		participle.Unquote("String"),
	)
}
