package resolve

import (
	"fmt"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/util"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// Count returns how many messages are in the set of literals. A message
// matches only if it is exactly equal to one of the literals; prefixes and
// suffixes of a literal do not match.
func Count(literals util.StringSet, messages []string) int {
	var count int
	for _, msg := range messages {
		if literals.Has(msg) {
			count++
		}
	}
	return count
}

// Matching returns every message that is in the set of literals, in the order
// they were given. Duplicate messages are kept.
func Matching(literals util.StringSet, messages []string) []string {
	var matched []string
	for _, msg := range messages {
		if literals.Has(msg) {
			matched = append(matched, msg)
		}
	}
	return matched
}

// CrossCheck resolves the target with both strategies and checks that they
// agree. The reduction's Result is returned.
//
// If the target reaches a cycle, the expansion would need bounds that make the
// comparison meaningless, so only the reduction is done and the check is
// skipped. Any warning from the reduction is returned as-is.
func CrossCheck(t grammar.Table, target int, rd Reducer, x Expander) (Result, error) {
	log := rd.Logger
	if log == nil {
		log = zap.NewNop()
	}

	reduced, reduceErr := rd.Reduce(t, target)

	if cycle := t.Graph().FindCycle(target); cycle != nil {
		log.Info("skipping strategy cross-check on cyclic grammar", zap.Ints("cycle", cycle))
		return reduced, reduceErr
	}
	if reduceErr != nil {
		return reduced, reduceErr
	}

	// any bound would prune valid derivations; the grammar is acyclic anyways
	x.MaxDepth = 0
	x.MaxLength = 0

	expanded, err := x.Expand(t, target)
	if err != nil {
		return reduced, fmt.Errorf("expand: %w", err)
	}

	if err := compareLiterals(reduced, expanded); err != nil {
		return reduced, err
	}

	log.Debug("strategies agree", zap.Int("literals", reduced.Literals.Len()))

	return reduced, nil
}

// compareLiterals returns an error matching ErrStrategyMismatch that lists the
// differences if the two Results do not have the same literals.
func compareLiterals(reduced, expanded Result) error {
	if reduced.Literals.Equal(expanded.Literals) {
		return nil
	}

	diff := cmp.Diff(util.Ordered(reduced.Literals), util.Ordered(expanded.Literals))
	return fmt.Errorf("%w: reduce (-) vs expand (+):\n%s", mmerrors.ErrStrategyMismatch, diff)
}
