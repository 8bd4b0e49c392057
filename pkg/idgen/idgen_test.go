package idgen

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOrderedMonotonic(t *testing.T) {
	g := NewTimeOrdered()

	prev, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), prev.Version())

	for i := 0; i < 1000; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Equal(t, 1, bytes.Compare(id[:], prev[:]), "ids must increase")
		prev = id
	}
}

func TestRandomUnique(t *testing.T) {
	g := NewRandom()
	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 1000; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), id.Version())
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestGlobalInit(t *testing.T) {
	defer Init(NewTimeOrdered())

	fixed := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	Init(GeneratorFunc(func() (uuid.UUID, error) { return fixed, nil }))

	id, err := Next()
	require.NoError(t, err)
	assert.Equal(t, fixed, id)

	// nil 不替换
	Init(nil)
	id, err = Next()
	require.NoError(t, err)
	assert.Equal(t, fixed, id)
}

func TestGeneratorFuncError(t *testing.T) {
	boom := errors.New("exhausted")
	g := GeneratorFunc(func() (uuid.UUID, error) { return uuid.Nil, boom })
	_, err := g.Generate()
	assert.ErrorIs(t, err, boom)
}
