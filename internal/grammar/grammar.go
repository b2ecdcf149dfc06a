// Package grammar holds the rule model for message grammars along with the
// parser that reads them from text.
//
// A grammar is a Table of numbered Rules. Each Rule is the union of its
// Alternatives, and each Alternative is the concatenation of its Elements. An
// Element is either a Literal or a Reference to another rule.
//
// Tables have value semantics. Every operation that changes a Table returns a
// new one and leaves the original untouched, and the Alternatives held by a
// Rule are never modified in place once the Rule is in a Table.
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/util"
)

// Element is a single item of an Alternative. It is always exactly one of
// Literal or Reference.
type Element interface {
	fmt.Stringer
	element()
}

// Literal is a fixed sequence of characters that is matched exactly. It is
// never empty.
type Literal string

func (Literal) element() {}

func (l Literal) String() string {
	return `"` + string(l) + `"`
}

// Reference refers to another rule by its ID.
type Reference int

func (Reference) element() {}

func (r Reference) String() string {
	return strconv.Itoa(int(r))
}

// Alternative is one production choice of a rule. It matches the
// concatenation of what each of its elements matches.
type Alternative []Element

// Copy returns a duplicate of the alternative that shares no storage with it.
func (alt Alternative) Copy() Alternative {
	alt2 := make(Alternative, len(alt))
	copy(alt2, alt)
	return alt2
}

func (alt Alternative) String() string {
	var sb strings.Builder

	for i := range alt {
		sb.WriteString(alt[i].String())
		if i+1 < len(alt) {
			sb.WriteRune(' ')
		}
	}

	return sb.String()
}

// Equal returns whether the alternative has the same elements as o in the
// same order. It will not be equal if o is not an Alternative or
// *Alternative.
func (alt Alternative) Equal(o any) bool {
	other, ok := o.(Alternative)
	if !ok {
		otherPtr, ok := o.(*Alternative)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if len(alt) != len(other) {
		return false
	}

	for i := range alt {
		if alt[i] != other[i] {
			return false
		}
	}

	return true
}

// Joined returns an equivalent Alternative in which every run of adjacent
// Literals has been merged into a single Literal.
func (alt Alternative) Joined() Alternative {
	joined := make(Alternative, 0, len(alt))

	for _, elem := range alt {
		lit, isLit := elem.(Literal)
		if isLit && len(joined) > 0 {
			if prev, prevIsLit := joined[len(joined)-1].(Literal); prevIsLit {
				joined[len(joined)-1] = prev + lit
				continue
			}
		}
		joined = append(joined, elem)
	}

	return joined
}

// Literal returns the concatenation of every element if all of them are
// Literals. If any element is a Reference, ok will be false.
func (alt Alternative) Literal() (value string, ok bool) {
	var sb strings.Builder

	for _, elem := range alt {
		switch e := elem.(type) {
		case Literal:
			sb.WriteString(string(e))
		case Reference:
			return "", false
		default:
			panic(fmt.Sprintf("unknown element type %T", elem))
		}
	}

	return sb.String(), true
}

// IsLiteral returns whether every element of the alternative is a Literal.
func (alt Alternative) IsLiteral() bool {
	_, ok := alt.Literal()
	return ok
}

// Refers returns whether the alternative contains a Reference to the given
// rule.
func (alt Alternative) Refers(id int) bool {
	for _, elem := range alt {
		if ref, ok := elem.(Reference); ok && int(ref) == id {
			return true
		}
	}
	return false
}

// Rule is a numbered production of the grammar. It matches the union of what
// each of its alternatives match.
type Rule struct {
	ID           int
	Alternatives []Alternative
}

// Copy returns a deep-copied duplicate of the rule.
func (r Rule) Copy() Rule {
	r2 := Rule{
		ID:           r.ID,
		Alternatives: make([]Alternative, len(r.Alternatives)),
	}

	for i := range r.Alternatives {
		r2.Alternatives[i] = r.Alternatives[i].Copy()
	}

	return r2
}

// String gives the rule in the same format that it is parsed from, such as
// `1: 2 3 | 3 2` or `4: "a"`.
func (r Rule) String() string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(r.ID))
	sb.WriteString(": ")

	for i := range r.Alternatives {
		sb.WriteString(r.Alternatives[i].String())
		if i+1 < len(r.Alternatives) {
			sb.WriteString(" | ")
		}
	}

	return sb.String()
}

// Equal returns whether the rule is equal to another value. It will not be
// equal if the other value cannot be cast to a Rule or *Rule.
func (r Rule) Equal(o any) bool {
	other, ok := o.(Rule)
	if !ok {
		otherPtr, ok := o.(*Rule)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if r.ID != other.ID || len(r.Alternatives) != len(other.Alternatives) {
		return false
	}

	for i := range r.Alternatives {
		if !r.Alternatives[i].Equal(other.Alternatives[i]) {
			return false
		}
	}

	return true
}

// LiteralOnly returns whether every element of every alternative of the rule
// is a Literal.
func (r Rule) LiteralOnly() bool {
	for _, alt := range r.Alternatives {
		if !alt.IsLiteral() {
			return false
		}
	}
	return len(r.Alternatives) > 0
}

// SingleLiteral returns whether the rule has exactly one alternative and that
// alternative is made only of Literals.
func (r Rule) SingleLiteral() bool {
	return len(r.Alternatives) == 1 && r.Alternatives[0].IsLiteral()
}

// Literals returns the joined value of every alternative of the rule that is
// made only of Literals, in alternative order and without duplicates. For a
// rule that is LiteralOnly this is everything the rule matches.
func (r Rule) Literals() []string {
	seen := util.NewKeySet[string]()
	var lits []string

	for _, alt := range r.Alternatives {
		if val, ok := alt.Literal(); ok && !seen.Has(val) {
			seen.Add(val)
			lits = append(lits, val)
		}
	}

	return lits
}

// Refers returns whether any alternative of the rule references the given
// rule.
func (r Rule) Refers(id int) bool {
	for _, alt := range r.Alternatives {
		if alt.Refers(id) {
			return true
		}
	}
	return false
}

// References returns the distinct IDs of every rule referenced by r, in
// ascending order.
func (r Rule) References() []int {
	refs := util.NewKeySet[int]()

	for _, alt := range r.Alternatives {
		for _, elem := range alt {
			if ref, ok := elem.(Reference); ok {
				refs.Add(int(ref))
			}
		}
	}

	return util.Ordered(refs)
}

// Table maps rule IDs to Rules. The zero value is an empty table ready to
// use.
type Table struct {
	rules map[int]Rule
}

// NewTable creates a Table from the given rules. If more than one rule has the
// same ID, the last one given is kept.
func NewTable(rules ...Rule) Table {
	t := Table{rules: make(map[int]Rule, len(rules))}
	for _, r := range rules {
		t.rules[r.ID] = r
	}
	return t
}

// Rule returns the rule with the given ID. If there is no such rule, ok will
// be false.
func (t Table) Rule(id int) (r Rule, ok bool) {
	r, ok = t.rules[id]
	return r, ok
}

// Has returns whether the table has a rule with the given ID.
func (t Table) Has(id int) bool {
	_, ok := t.rules[id]
	return ok
}

// Len returns the number of rules in the table.
func (t Table) Len() int {
	return len(t.rules)
}

// IDs returns the ID of every rule in the table in ascending order.
func (t Table) IDs() []int {
	return util.OrderedKeys(t.rules)
}

// WithRule returns a new Table that is the same as t but with r added,
// replacing any rule already in t that has the same ID.
func (t Table) WithRule(r Rule) Table {
	t2 := t.shallowCopy()
	t2.rules[r.ID] = r
	return t2
}

// Without returns a new Table that is the same as t but with no rule of the
// given ID. If t already has no such rule, the returned Table is simply a copy.
func (t Table) Without(id int) Table {
	t2 := t.shallowCopy()
	delete(t2.rules, id)
	return t2
}

// Copy returns a deep-copied duplicate of the table.
func (t Table) Copy() Table {
	t2 := Table{rules: make(map[int]Rule, len(t.rules))}
	for id, r := range t.rules {
		t2.rules[id] = r.Copy()
	}
	return t2
}

func (t Table) shallowCopy() Table {
	t2 := Table{rules: make(map[int]Rule, len(t.rules)+1)}
	for id, r := range t.rules {
		t2.rules[id] = r
	}
	return t2
}

// Dependents returns the IDs of every rule other than id itself that
// references rule id, in ascending order.
func (t Table) Dependents(id int) []int {
	var deps []int
	for _, other := range t.IDs() {
		if other != id && t.rules[other].Refers(id) {
			deps = append(deps, other)
		}
	}
	return deps
}

// String gives every rule of the table in ascending order of ID, one per line.
func (t Table) String() string {
	var sb strings.Builder

	ids := t.IDs()
	for i, id := range ids {
		sb.WriteString(t.rules[id].String())
		if i+1 < len(ids) {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// Equal returns whether the table has the same rules as o. It will not be
// equal if o is not a Table or *Table.
func (t Table) Equal(o any) bool {
	other, ok := o.(Table)
	if !ok {
		otherPtr, ok := o.(*Table)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if len(t.rules) != len(other.rules) {
		return false
	}

	for id, r := range t.rules {
		otherRule, ok := other.rules[id]
		if !ok || !r.Equal(otherRule) {
			return false
		}
	}

	return true
}

// Validate checks that the target rule exists and that every Reference in the
// table names a rule that exists. A reference to an undefined rule gives a
// *mmerrors.MalformedRuleError for the referencing rule.
func (t Table) Validate(target int) error {
	if !t.Has(target) {
		return fmt.Errorf("%w: target rule %d is not defined", mmerrors.ErrUnknownRule, target)
	}

	for _, id := range t.IDs() {
		r := t.rules[id]
		if len(r.Alternatives) < 1 {
			return mmerrors.MalformedRule(0, r.String(), "rule has no alternatives")
		}
		for _, ref := range r.References() {
			if !t.Has(ref) {
				return mmerrors.MalformedRule(0, r.String(), "references undefined rule %d", ref)
			}
		}
	}

	return nil
}
