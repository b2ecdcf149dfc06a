package resolve

import (
	"fmt"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/util"
	"go.uber.org/zap"
)

// Reducer resolves a rule by rewriting the table until the rule is
// literal-only or no further rewrite is possible.
//
// Each rewrite folds one literal-only rule into every rule that references it
// and then drops it from the table. Rules with a single literal alternative are
// folded before rules with several, since folding them never adds
// alternatives.
type Reducer struct {
	// MaxAlternatives is the most alternatives any rewritten rule may have.
	// Zero means no limit.
	MaxAlternatives int

	// Logger receives debug output. If nil, nothing is logged.
	Logger *zap.Logger
}

// Resolve calls Reduce.
func (rd Reducer) Resolve(t grammar.Table, target int) (Result, error) {
	return rd.Reduce(t, target)
}

// Reduce rewrites t until the target rule is literal-only. The given table is
// not modified; every rewrite produces a new one.
//
// If a fixpoint is reached before the target becomes literal-only, the
// returned Result holds whatever literal alternatives the target has at that
// point and the returned error is a *mmerrors.UnresolvedGrammarWarning listing
// the rules reachable from the target that remain. The Result is usable in
// that case; it is simply not complete.
//
// Reducing the Table of a returned Result again gives an identical Result.
func (rd Reducer) Reduce(t grammar.Table, target int) (Result, error) {
	log := rd.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if !t.Has(target) {
		return Result{}, fmt.Errorf("%w: target rule %d is not defined", mmerrors.ErrUnknownRule, target)
	}

	active := t

	// singles are step-A rules (one literal alternative), multis are step-B
	// rules (a set of literal alternatives).
	var singles, multis []int
	enqueue := func(r grammar.Rule) {
		if r.ID == target || !r.LiteralOnly() {
			return
		}
		if len(r.Literals()) == 1 {
			singles = append(singles, r.ID)
		} else {
			multis = append(multis, r.ID)
		}
	}

	for _, id := range active.IDs() {
		r, _ := active.Rule(id)
		enqueue(r)
	}

	var folds int
	for {
		if targetRule, _ := active.Rule(target); targetRule.LiteralOnly() {
			break
		}

		var id int
		if len(singles) > 0 {
			id, singles = singles[0], singles[1:]
		} else if len(multis) > 0 {
			id, multis = multis[0], multis[1:]
		} else {
			// fixpoint
			break
		}

		r, ok := active.Rule(id)
		if !ok {
			continue
		}
		lits := r.Literals()

		next := active.Without(id)
		deps := active.Dependents(id)
		for _, depID := range deps {
			dep, _ := active.Rule(depID)

			folded, err := fold(dep, id, lits, rd.MaxAlternatives)
			if err != nil {
				return Result{}, err
			}

			next = next.WithRule(folded)
			enqueue(folded)
		}

		log.Debug("folded rule",
			zap.Int("rule", id),
			zap.Int("literals", len(lits)),
			zap.Ints("into", deps),
		)

		active = next
		folds++
	}

	targetRule, _ := active.Rule(target)
	result := Result{
		Strategy: StrategyReduce,
		Target:   target,
		Literals: util.KeySetOf(targetRule.Literals()),
		Table:    active,
	}

	log.Debug("reduction finished",
		zap.Int("target", target),
		zap.Int("folds", folds),
		zap.Int("literals", result.Literals.Len()),
	)

	if targetRule.LiteralOnly() {
		return result, nil
	}

	reachable := active.Graph().Reachable(target)
	warning := &mmerrors.UnresolvedGrammarWarning{}
	for _, id := range util.Ordered(reachable) {
		r, _ := active.Rule(id)
		warning.IDs = append(warning.IDs, id)
		warning.Bodies = append(warning.Bodies, r.String())
	}
	result.Unresolved = warning.IDs

	return result, warning
}

// fold replaces every reference to rule id in r with each of the given
// literals in turn. An alternative with n references to id becomes
// len(lits)^n alternatives. Adjacent literals in the output are joined and
// duplicate alternatives are dropped.
func fold(r grammar.Rule, id int, lits []string, maxAlts int) (grammar.Rule, error) {
	folded := grammar.Rule{ID: r.ID}
	seen := util.NewKeySet[string]()

	add := func(alt grammar.Alternative) error {
		alt = alt.Joined()
		key := alt.String()
		if seen.Has(key) {
			return nil
		}
		seen.Add(key)
		folded.Alternatives = append(folded.Alternatives, alt)

		if maxAlts > 0 && len(folded.Alternatives) > maxAlts {
			return fmt.Errorf("%w: folding rule %d into rule %d gives more than %d alternatives", mmerrors.ErrExpansionLimit, id, r.ID, maxAlts)
		}
		return nil
	}

	for _, alt := range r.Alternatives {
		if !alt.Refers(id) {
			if err := add(alt); err != nil {
				return grammar.Rule{}, err
			}
			continue
		}

		partials := []grammar.Alternative{{}}
		for _, elem := range alt {
			switch e := elem.(type) {
			case grammar.Reference:
				if int(e) == id {
					if maxAlts > 0 && len(partials)*len(lits) > maxAlts {
						return grammar.Rule{}, fmt.Errorf("%w: folding rule %d into rule %d gives more than %d alternatives", mmerrors.ErrExpansionLimit, id, r.ID, maxAlts)
					}

					branched := make([]grammar.Alternative, 0, len(partials)*len(lits))
					for _, p := range partials {
						for _, lit := range lits {
							branched = append(branched, extend(p, grammar.Literal(lit)))
						}
					}
					partials = branched
					continue
				}
			case grammar.Literal:
			default:
				panic(fmt.Sprintf("unknown element type %T", elem))
			}

			for i := range partials {
				partials[i] = append(partials[i], elem)
			}
		}

		for _, p := range partials {
			if err := add(p); err != nil {
				return grammar.Rule{}, err
			}
		}
	}

	return folded, nil
}

// extend returns a new Alternative made of alt followed by elem. It never
// shares storage with alt.
func extend(alt grammar.Alternative, elem grammar.Element) grammar.Alternative {
	extended := make(grammar.Alternative, len(alt), len(alt)+1)
	copy(extended, alt)
	return append(extended, elem)
}
