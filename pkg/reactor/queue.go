package reactor

import (
	"sync"

	"github.com/eapache/queue"
)

var _ Reactor = (*Queue)(nil)

type operation struct {
	complete Completion
	abort    Abort
}

// Queue 基于环形队列的 Reactor 实现
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	ops     *queue.Queue
	stopped bool
	closed  bool
}

// New 创建 Queue reactor
func New() *Queue {
	q := &Queue{ops: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Post 投递完成回调
func (q *Queue) Post(complete Completion, abort Abort) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if abort != nil {
			abort(ErrClosed)
		}
		return ErrClosed
	}
	q.ops.Add(&operation{complete: complete, abort: abort})
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// Run 在当前 goroutine 上派发回调
func (q *Queue) Run() error {
	for {
		q.mu.Lock()
		for q.ops.Length() == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return nil
		}
		op := q.ops.Remove().(*operation)
		q.mu.Unlock()

		if err := op.complete(); err != nil {
			return err
		}
	}
}

// Stop 通知 Run 返回
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Restart 清除停止状态
func (q *Queue) Restart() {
	q.mu.Lock()
	if !q.closed {
		q.stopped = false
	}
	q.mu.Unlock()
}

// Stopped 返回是否处于停止状态
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Len 返回排队中的回调数量
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ops.Length()
}

// Discard 丢弃排队的回调
func (q *Queue) Discard() int {
	q.mu.Lock()
	pending := make([]*operation, 0, q.ops.Length())
	for q.ops.Length() > 0 {
		pending = append(pending, q.ops.Remove().(*operation))
	}
	q.mu.Unlock()

	// abort 可能再次 Post，必须在锁外执行
	for _, op := range pending {
		if op.abort != nil {
			op.abort(ErrClosed)
		}
	}
	return len(pending)
}

// Close 关闭 reactor
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()

	q.Discard()
	return nil
}
