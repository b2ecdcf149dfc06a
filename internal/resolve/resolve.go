// Package resolve turns a grammar Table into the set of literal strings that a
// target rule derives, and matches messages against that set.
//
// Two strategies are provided. A Reducer rewrites the table to a fixpoint by
// folding literal-only rules into the rules that reference them. An Expander
// enumerates every derivation of the target directly. For any grammar without
// a cycle reachable from the target, both give the same set.
package resolve

import (
	"fmt"
	"strings"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/util"
)

// Strategy is the name of a resolution strategy.
type Strategy string

func (s Strategy) String() string {
	return string(s)
}

const (
	StrategyNone   Strategy = "none"
	StrategyReduce Strategy = "reduce"
	StrategyExpand Strategy = "expand"
)

// ParseStrategy parses a strategy name. Case is ignored.
func ParseStrategy(s string) (Strategy, error) {
	sLower := strings.ToLower(strings.TrimSpace(s))

	switch sLower {
	case StrategyReduce.String():
		return StrategyReduce, nil
	case StrategyExpand.String():
		return StrategyExpand, nil
	default:
		return StrategyNone, fmt.Errorf("strategy not one of 'reduce' or 'expand': %q", s)
	}
}

// Resolver produces the literal set of a target rule from a Table.
type Resolver interface {
	Resolve(t grammar.Table, target int) (Result, error)
}

// Result is the outcome of resolving a target rule.
type Result struct {
	// Strategy is the strategy that produced the Result.
	Strategy Strategy

	// Target is the ID of the rule that was resolved.
	Target int

	// Literals is every string the target derives. If Unresolved is not
	// empty, it holds only what could be derived before the fixpoint.
	Literals util.StringSet

	// Table is the table the Result was derived from. For a reduction this is
	// the fixpoint table; for an expansion it is the input table.
	Table grammar.Table

	// Unresolved holds the IDs of rules reachable from the target that
	// reduction could not bring to literal-only form, in ascending order.
	Unresolved []int

	// Pruned is the number of derivations an expansion abandoned because they
	// went past a depth or length bound.
	Pruned int
}

// Complete returns whether the Literals of the Result are everything the
// target derives, as far as the strategy can tell. A reduction is complete if
// it left no unresolved rules; an expansion is complete if it pruned nothing.
func (r Result) Complete() bool {
	return len(r.Unresolved) == 0 && r.Pruned == 0
}
