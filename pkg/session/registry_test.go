package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	*BaseSession
	disconnects int
}

func newFakeSession(id uuid.UUID) *fakeSession {
	return &fakeSession{BaseSession: NewBaseSession(id, nil)}
}

func (s *fakeSession) Connect() {}

func (s *fakeSession) Disconnect() bool {
	s.disconnects++
	return true
}

func TestRegistryInsertRemove(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession(uuid.New())

	require.True(t, r.Insert(s))
	assert.Equal(t, 1, r.Count())

	got, ok := r.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	removed, ok := r.Remove(s.ID())
	require.True(t, ok)
	assert.Same(t, s, removed)
	assert.Equal(t, 0, r.Count())

	// 未知 ID 静默返回
	_, ok = r.Remove(s.ID())
	assert.False(t, ok)
}

func TestRegistryInsertDuplicate(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	first := newFakeSession(id)
	second := newFakeSession(id)

	require.True(t, r.Insert(first))
	assert.False(t, r.Insert(second))

	got, _ := r.Get(id)
	assert.Same(t, first, got)
}

func TestRegistrySnapshotOrdered(t *testing.T) {
	r := NewRegistry()

	ids := make([]uuid.UUID, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	// 乱序插入
	for i := len(ids) - 1; i >= 0; i-- {
		require.True(t, r.Insert(newFakeSession(ids[i])))
	}

	snapshot := r.Snapshot()
	require.Len(t, snapshot, len(ids))
	for i, s := range snapshot {
		assert.Equal(t, ids[i], s.ID())
	}
}

func TestRegistryRangeAllowsRemoval(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Insert(newFakeSession(uuid.New()))
	}

	visited := 0
	r.Range(func(s Session) bool {
		visited++
		r.Remove(s.ID())
		return true
	})
	assert.Equal(t, 5, visited)
	assert.Equal(t, 0, r.Count())
}

func TestRegistryRangeStops(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Insert(newFakeSession(uuid.New()))
	}

	visited := 0
	r.Range(func(s Session) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := newFakeSession(uuid.New())
				assert.True(t, r.Insert(s))
				_ = r.Snapshot()
				_, ok := r.Remove(s.ID())
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Count())
}
