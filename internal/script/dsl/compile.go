// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package dsl

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

// parser is the singleton participle parser instance.
var parser *participle.Parser[Expr]

func init() {
	var err error
	parser, err = NewParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build constraint parser: %v", err))
	}
}

// Parse parses one constraint expression into an AST.
func Parse(text string) (*Expr, error) {
	expr, err := parser.ParseString("", text)
	if err != nil {
		return nil, oops.With("expression", text).Wrapf(err, "parsing constraint expression")
	}
	return expr, nil
}

// Compile lowers one constraint expression to a world constraint.
func Compile(text string) (world.Constraint, error) {
	expr, err := Parse(text)
	if err != nil {
		return world.Constraint{}, err
	}
	return lower(expr)
}

// CompileAll lowers a list of expressions, one per positional argument.
func CompileAll(texts []string) ([]world.Constraint, error) {
	out := make([]world.Constraint, 0, len(texts))
	for i, text := range texts {
		c, err := Compile(text)
		if err != nil {
			return nil, oops.With("position", i).Wrap(err)
		}
		out = append(out, c)
	}
	return out, nil
}

func lower(expr *Expr) (world.Constraint, error) {
	switch {
	case expr.Any:
		return world.Constraint{Kind: world.ConstraintNone}, nil

	case expr.Self:
		return world.Constraint{Kind: world.ConstraintSelf}, nil

	case expr.Proto != nil:
		ref, err := ulid.Parse(expr.Proto.Ref)
		if err != nil {
			return world.Constraint{}, fmt.Errorf("invalid prototype ref %q: %w", expr.Proto.Ref, err)
		}
		return world.Constraint{Kind: world.ConstraintPrototypeOf, Ref: ref}, nil

	case expr.Quest != nil:
		return world.Constraint{
			Kind:      world.ConstraintPredicate,
			Predicate: world.PredicateQuestPhaseOf,
			Param:     value.List(value.String(expr.Quest.Name), value.Int(expr.Quest.Phase)),
		}, nil

	case expr.Race != nil:
		return world.Constraint{
			Kind:      world.ConstraintPredicate,
			Predicate: world.PredicateRaceOf,
			Param:     value.Symbol(expr.Race.Name),
		}, nil

	case expr.Equipped != nil:
		ref, err := ulid.Parse(expr.Equipped.Ref)
		if err != nil {
			return world.Constraint{}, fmt.Errorf("invalid item ref %q: %w", expr.Equipped.Ref, err)
		}
		return world.Constraint{
			Kind:      world.ConstraintPredicate,
			Predicate: world.PredicateEquippedItemOf,
			Param:     value.Ref(ref),
		}, nil

	default:
		return world.Constraint{}, fmt.Errorf("empty constraint expression")
	}
}
