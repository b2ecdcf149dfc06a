package grammar

import (
	"testing"

	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/stretchr/testify/assert"
)

func Test_Alternative_Joined(t *testing.T) {
	testCases := []struct {
		name   string
		input  Alternative
		expect Alternative
	}{
		{
			name:   "empty",
			input:  Alternative{},
			expect: Alternative{},
		},
		{
			name:   "two literals become one",
			input:  Alternative{Literal("a"), Literal("b")},
			expect: Alternative{Literal("ab")},
		},
		{
			name:   "references split runs",
			input:  Alternative{Literal("a"), Literal("b"), Reference(3), Literal("c"), Literal("d"), Literal("e")},
			expect: Alternative{Literal("ab"), Reference(3), Literal("cde")},
		},
		{
			name:   "no literals",
			input:  Alternative{Reference(1), Reference(2)},
			expect: Alternative{Reference(1), Reference(2)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.input.Joined()

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Alternative_Joined_DoesNotModifyOriginal(t *testing.T) {
	assert := assert.New(t)

	alt := Alternative{Literal("a"), Literal("b"), Reference(2)}
	_ = alt.Joined()

	assert.Equal(Alternative{Literal("a"), Literal("b"), Reference(2)}, alt)
}

func Test_Alternative_Literal_JoinedEquivalence(t *testing.T) {
	assert := assert.New(t)

	split := Alternative{Literal("a"), Literal("b")}
	whole := Alternative{Literal("ab")}

	splitVal, splitOK := split.Literal()
	wholeVal, wholeOK := whole.Literal()

	assert.True(splitOK)
	assert.True(wholeOK)
	assert.Equal(wholeVal, splitVal)
	assert.True(split.Joined().Equal(whole))
}

func Test_Rule_LiteralOnly(t *testing.T) {
	testCases := []struct {
		name          string
		rule          string
		literalOnly   bool
		singleLiteral bool
		literals      []string
	}{
		{
			name:          "single literal",
			rule:          `4: "a"`,
			literalOnly:   true,
			singleLiteral: true,
			literals:      []string{"a"},
		},
		{
			name:          "literal sequence",
			rule:          `4: "a" "b"`,
			literalOnly:   true,
			singleLiteral: true,
			literals:      []string{"ab"},
		},
		{
			name:        "literal set",
			rule:        `2: "aa" | "bb" | "a" "a"`,
			literalOnly: true,
			literals:    []string{"aa", "bb"},
		},
		{
			name:     "mixed",
			rule:     `8: "a" | "a" 8`,
			literals: []string{"a"},
		},
		{
			name: "references only",
			rule: `0: 4 1 5`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r := MustParseRule(tc.rule)

			assert.Equal(tc.literalOnly, r.LiteralOnly())
			assert.Equal(tc.singleLiteral, r.SingleLiteral())
			assert.Equal(tc.literals, r.Literals())
		})
	}
}

func Test_Rule_References(t *testing.T) {
	assert := assert.New(t)

	r := MustParseRule(`11: 42 31 | 42 11 31 | "a" 2`)

	assert.Equal([]int{2, 11, 31, 42}, r.References())
	assert.True(r.Refers(11))
	assert.False(r.Refers(5))
}

func Test_Table_CopyOnWrite(t *testing.T) {
	assert := assert.New(t)

	orig := MustParseRules(`0: 1 1`, `1: "a"`)
	origStr := orig.String()

	added := orig.WithRule(MustParseRule(`2: "b"`))
	replaced := orig.WithRule(MustParseRule(`1: "b"`))
	removed := orig.Without(1)

	assert.Equal(origStr, orig.String())
	assert.Equal(3, added.Len())
	assert.True(added.Has(2))
	assert.False(orig.Has(2))

	r, ok := replaced.Rule(1)
	assert.True(ok)
	assert.Equal([]string{"b"}, r.Literals())

	assert.False(removed.Has(1))
	assert.True(orig.Has(1))
}

func Test_Table_Dependents(t *testing.T) {
	assert := assert.New(t)

	tab := MustParseRules(
		`0: 8 11`,
		`8: 42 | 42 8`,
		`11: 42 31`,
		`42: "a"`,
		`31: "b"`,
	)

	assert.Equal([]int{8, 11}, tab.Dependents(42))
	assert.Equal([]int{0}, tab.Dependents(8), "a rule is never its own dependent")
	assert.Nil(tab.Dependents(0))
}

func Test_Table_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		table     Table
		target    int
		expectErr error
	}{
		{
			name:      "empty table",
			table:     NewTable(),
			expectErr: mmerrors.ErrUnknownRule,
		},
		{
			name:  "valid",
			table: MustParseRules(`0: 1`, `1: "a"`),
		},
		{
			name:      "other target missing",
			table:     MustParseRules(`0: 1`, `1: "a"`),
			target:    3,
			expectErr: mmerrors.ErrUnknownRule,
		},
		{
			name:      "dangling override",
			table:     MustParseRules(`0: 1`, `1: "a"`).WithRule(MustParseRule(`1: 2`)),
			expectErr: mmerrors.ErrMalformedRule,
		},
		{
			name:      "rule with no alternatives",
			table:     MustParseRules(`0: 1`, `1: "a"`).WithRule(Rule{ID: 1}),
			expectErr: mmerrors.ErrMalformedRule,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.table.Validate(tc.target)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
			} else {
				assert.NoError(err)
			}
		})
	}
}
