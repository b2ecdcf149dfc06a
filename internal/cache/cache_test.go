package cache

import (
	"testing"
	"time"

	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_Key(t *testing.T) {
	base := grammar.MustParseRules(`0: 1 2`, `1: "a"`, `2: "b"`)

	testCases := []struct {
		name       string
		table      grammar.Table
		strategy   string
		opts       Options
		expectSame bool
	}{
		{
			name:       "same table parsed again",
			table:      grammar.MustParseRules(`2: "b"`, `1: "a"`, `0: 1 2`),
			strategy:   "reduce",
			expectSame: true,
		},
		{
			name:     "different strategy",
			table:    base,
			strategy: "expand",
		},
		{
			name:     "different bound",
			table:    base,
			strategy: "reduce",
			opts:     Options{MaxAlternatives: 10},
		},
		{
			name:     "different rule",
			table:    base.WithRule(grammar.MustParseRule(`2: "c"`)),
			strategy: "reduce",
		},
	}

	baseKey := Key(base, "reduce", Options{})

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := Key(tc.table, tc.strategy, tc.opts)

			assert.Len(actual, 64)
			if tc.expectSame {
				assert.Equal(baseKey, actual)
			} else {
				assert.NotEqual(baseKey, actual)
			}
		})
	}
}

func Test_Entry_BinaryEncoding(t *testing.T) {
	assert := assert.New(t)

	e := Entry{
		ID:         uuid.MustParse("2e5f4a8c-3f0b-4a6e-9a51-0f3d2b7c9e11"),
		Key:        "abc123",
		Strategy:   "reduce",
		Literals:   []string{"ab", "ba", "aabb"},
		Unresolved: []int{0, 8},
		Bodies:     []string{`0: 8 "ab"`, `8: "a" | "a" 8`},
		Pruned:     3,
		Created:    time.Unix(1700000000, 0),
	}

	data, err := e.MarshalBinary()
	if !assert.NoError(err) {
		return
	}

	var actual Entry
	err = actual.UnmarshalBinary(data)

	assert.NoError(err)
	assert.Equal(e.ID, actual.ID)
	assert.Equal(e.Key, actual.Key)
	assert.Equal(e.Strategy, actual.Strategy)
	assert.Equal(e.Literals, actual.Literals)
	assert.Equal(e.Unresolved, actual.Unresolved)
	assert.Equal(e.Bodies, actual.Bodies)
	assert.Equal(e.Pruned, actual.Pruned)
	assert.True(e.Created.Equal(actual.Created))
}

func Test_Entry_UnmarshalBinary_truncated(t *testing.T) {
	assert := assert.New(t)

	e := Entry{ID: uuid.New(), Key: "k", Literals: []string{"ab"}}
	data, _ := e.MarshalBinary()

	var actual Entry
	err := actual.UnmarshalBinary(data[:len(data)/2])

	assert.Error(err)
}
