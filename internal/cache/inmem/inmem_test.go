package inmem

import (
	"context"
	"testing"

	"github.com/dekarrin/monmsg/internal/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_Store(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st := NewDatastore()
	defer st.Close()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(err, cache.ErrNotFound)

	lits := []string{"ab", "ba"}
	stored, err := st.Put(ctx, cache.Entry{Key: "k1", Strategy: "reduce", Literals: lits})
	if !assert.NoError(err) {
		return
	}
	assert.NotEqual(uuid.Nil, stored.ID)
	assert.False(stored.Created.IsZero())

	// stored copy is independent of the caller's slice
	lits[0] = "zz"

	actual, err := st.Get(ctx, "k1")
	assert.NoError(err)
	assert.Equal(stored.ID, actual.ID)
	assert.Equal([]string{"ab", "ba"}, actual.Literals)

	replaced, err := st.Put(ctx, cache.Entry{Key: "k1", Strategy: "expand", Literals: []string{"x"}})
	assert.NoError(err)

	actual, err = st.Get(ctx, "k1")
	assert.NoError(err)
	assert.Equal(replaced.ID, actual.ID)
	assert.Equal("expand", actual.Strategy)
}
