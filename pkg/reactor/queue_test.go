package reactor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAsync(q *Queue) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- q.Run()
	}()
	return done
}

func TestQueueDispatchOrder(t *testing.T) {
	q := New()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, q.Post(func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}, nil))
	}

	done := runAsync(q)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, 5*time.Millisecond)

	q.Stop()
	assert.NoError(t, <-done)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueueRunReturnsCompletionError(t *testing.T) {
	q := New()
	boom := errors.New("boom")

	ran := make(chan struct{})
	require.NoError(t, q.Post(func() error { return boom }, nil))
	require.NoError(t, q.Post(func() error { close(ran); return nil }, nil))

	assert.ErrorIs(t, q.Run(), boom)

	// 错误只结束当前 Run，剩余回调仍在队列中
	done := runAsync(q)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("second completion not dispatched")
	}
	q.Stop()
	assert.NoError(t, <-done)
}

func TestQueueStopKeepsPendingUntilRestart(t *testing.T) {
	q := New()
	q.Stop()
	assert.True(t, q.Stopped())

	var ran bool
	require.NoError(t, q.Post(func() error { ran = true; return nil }, nil))

	// 停止状态下 Run 立即返回
	assert.NoError(t, q.Run())
	assert.False(t, ran)
	assert.Equal(t, 1, q.Len())

	q.Restart()
	done := runAsync(q)
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
	q.Stop()
	assert.NoError(t, <-done)
	assert.True(t, ran)
}

func TestQueueDiscardAborts(t *testing.T) {
	q := New()

	aborted := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Post(func() error {
			t.Error("discarded completion must not run")
			return nil
		}, func(err error) {
			assert.ErrorIs(t, err, ErrClosed)
			aborted++
		}))
	}

	assert.Equal(t, 3, q.Discard())
	assert.Equal(t, 3, aborted)
	assert.Equal(t, 0, q.Len())
}

func TestQueueClose(t *testing.T) {
	q := New()
	done := runAsync(q)

	require.NoError(t, q.Close())
	assert.NoError(t, <-done)

	var abortErr error
	err := q.Post(func() error { return nil }, func(err error) { abortErr = err })
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, abortErr, ErrClosed)

	// 关闭后 Restart 无效
	q.Restart()
	assert.True(t, q.Stopped())
	assert.NoError(t, q.Close())
}
