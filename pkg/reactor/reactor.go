// Package reactor 提供单 goroutine 派发的异步完成队列。
//
// 阻塞操作（accept、读取）在其他 goroutine 中执行，完成后通过 Post 投递回调，
// 由调用 Run 的 goroutine 串行执行。语义与 asio 的 io_context 对齐：
// Stop 只让 Run 返回，不丢弃已投递的回调；Restart 之后再次 Run 会继续派发。
package reactor

import "errors"

var (
	// ErrClosed reactor 已关闭，不再接受投递
	ErrClosed = errors.New("reactor: closed")
)

// Completion 在派发 goroutine 上执行的完成回调。
// 返回的错误会使当前 Run 调用返回该错误。
type Completion func() error

// Abort 当完成回调最终无法执行时调用（Discard/Close 或投递到已关闭的 reactor）。
type Abort func(err error)

// Reactor 异步完成派发器接口
type Reactor interface {
	// Post 投递一个完成回调；abort 可以为 nil。
	Post(complete Completion, abort Abort) error
	// Run 阻塞派发回调，直到 Stop 被调用（返回 nil）或某个回调返回错误。
	Run() error
	// Stop 通知 Run 返回。已投递但未执行的回调保留在队列中。
	Stop()
	// Restart 清除停止状态，使后续 Run 可以继续派发。
	Restart()
	// Stopped 返回是否处于停止状态。
	Stopped() bool
	// Discard 丢弃所有排队的回调，并对每个回调调用其 abort。
	Discard() int
	// Close 停止并丢弃所有回调，之后的 Post 直接中止。
	Close() error
}
