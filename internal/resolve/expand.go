package resolve

import (
	"fmt"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/util"
	"go.uber.org/zap"
)

// Expander resolves a rule by enumerating every derivation of it.
//
// Expansion cost is exponential in the depth of branching rules, so it is only
// suitable for grammars whose branching is shallow. A grammar where the target
// reaches a cycle can only be expanded if MaxDepth or MaxLength is set.
type Expander struct {
	// MaxDepth is the maximum number of times a single derivation may
	// substitute rules that lie on a cycle. Derivations that would go deeper
	// are pruned. Zero means no depth bound.
	MaxDepth int

	// MaxLength prunes derivations that cannot produce a string of this length
	// or shorter. Zero means no length bound.
	MaxLength int

	// Logger receives debug output. If nil, nothing is logged.
	Logger *zap.Logger
}

// derivation is a partially expanded string: the literal text produced so far
// followed by the elements not yet expanded.
type derivation struct {
	prefix string
	rest   []grammar.Element
	depth  int
}

// Resolve calls Expand.
func (x Expander) Resolve(t grammar.Table, target int) (Result, error) {
	return x.Expand(t, target)
}

// Expand enumerates every string derived by the target rule.
//
// If a cycle is reachable from the target and neither bound is set, a
// *mmerrors.CycleError is returned. If only MaxLength is set, a depth bound is
// derived from it so that expansion always terminates without losing any
// derivation of MaxLength characters or fewer.
func (x Expander) Expand(t grammar.Table, target int) (Result, error) {
	log := x.Logger
	if log == nil {
		log = zap.NewNop()
	}

	start, ok := t.Rule(target)
	if !ok {
		return Result{}, fmt.Errorf("%w: target rule %d is not defined", mmerrors.ErrUnknownRule, target)
	}

	graph := t.Graph()
	cyclic := util.NewKeySet[int]()
	maxDepth := x.MaxDepth

	if cycle := graph.FindCycle(target); cycle != nil {
		if x.MaxDepth < 1 && x.MaxLength < 1 {
			return Result{}, &mmerrors.CycleError{Path: cycle}
		}
		cyclic = graph.Cyclic()

		// every node of a derivation tree for a string of n chars either
		// branches (at most n-1 of those) or heads a unit chain no longer than
		// the number of rules.
		if maxDepth < 1 {
			maxDepth = 2 * x.MaxLength * (t.Len() + 1)
		}

		log.Debug("expanding grammar with a reachable cycle",
			zap.Ints("cycle", cycle),
			zap.Int("maxDepth", maxDepth),
			zap.Int("maxLength", x.MaxLength),
		)
	}

	var mins map[int]int
	if x.MaxLength > 0 {
		mins = t.MinLengths()
	}

	result := Result{
		Strategy: StrategyExpand,
		Target:   target,
		Literals: util.NewKeySet[string](),
		Table:    t,
	}

	work := make([]derivation, 0, len(start.Alternatives))
	for i := len(start.Alternatives) - 1; i >= 0; i-- {
		work = append(work, derivation{rest: start.Alternatives[i]})
	}

nextDerivation:
	for len(work) > 0 {
		d := work[len(work)-1]
		work = work[:len(work)-1]

		for {
			if x.MaxLength > 0 {
				remaining, ok := grammar.MinLength(d.rest, mins)
				if !ok || len(d.prefix)+remaining > x.MaxLength {
					result.Pruned++
					continue nextDerivation
				}
			}

			if len(d.rest) == 0 {
				result.Literals.Add(d.prefix)
				continue nextDerivation
			}

			switch elem := d.rest[0].(type) {
			case grammar.Literal:
				d.prefix += string(elem)
				d.rest = d.rest[1:]
			case grammar.Reference:
				r, ok := t.Rule(int(elem))
				if !ok {
					return Result{}, fmt.Errorf("%w: rule %d is referenced but not defined", mmerrors.ErrUnknownRule, int(elem))
				}

				depth := d.depth
				if cyclic.Has(int(elem)) {
					depth++
					if maxDepth > 0 && depth > maxDepth {
						result.Pruned++
						continue nextDerivation
					}
				}

				tail := d.rest[1:]
				if len(r.Alternatives) == 1 {
					// no branching needed, keep going with this derivation
					d.rest = splice(r.Alternatives[0], tail)
					d.depth = depth
					continue
				}

				for i := len(r.Alternatives) - 1; i >= 0; i-- {
					work = append(work, derivation{
						prefix: d.prefix,
						rest:   splice(r.Alternatives[i], tail),
						depth:  depth,
					})
				}
				continue nextDerivation
			default:
				panic(fmt.Sprintf("unknown element type %T", elem))
			}
		}
	}

	log.Debug("expansion finished",
		zap.Int("target", target),
		zap.Int("literals", result.Literals.Len()),
		zap.Int("pruned", result.Pruned),
	)

	return result, nil
}

// splice returns a new slice holding the elements of alt followed by those of
// tail.
func splice(alt grammar.Alternative, tail []grammar.Element) []grammar.Element {
	spliced := make([]grammar.Element, 0, len(alt)+len(tail))
	spliced = append(spliced, alt...)
	spliced = append(spliced, tail...)
	return spliced
}
