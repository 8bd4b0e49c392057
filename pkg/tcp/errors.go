package tcp

import (
	"syscall"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidAddress  = errors.New("tcp: invalid address")
	ErrBind            = errors.New("tcp: bind failed")
	ErrAccept          = errors.New("tcp: accept failed")
	ErrDispatch        = errors.New("tcp: dispatch failed")
	ErrLoopFault       = errors.New("tcp: loop fault")
	ErrSession         = errors.New("tcp: session error")
	ErrTooManySessions = errors.New("tcp: too many sessions")

	ErrAcceptPending  = errors.New("tcp: accept already pending")
	ErrListenerClosed = errors.New("tcp: listener closed")
	ErrServerClosed   = errors.New("tcp: server closed")
	ErrServerStopping = errors.New("tcp: server stopping")
	ErrLoopReentry    = errors.New("tcp: stop called on loop goroutine")
)

// 错误类别，即 Handler.OnError 的 category 参数
const (
	CategoryAccept   = "accept"
	CategoryDispatch = "dispatch"
	CategorySession  = "session"
	CategoryBind     = "bind"
	CategoryAddress  = "address"
	CategoryFault    = "fault"
	CategoryUnknown  = "unknown"
)

// Describe 将错误拆成 (code, category, message)。
// code 为错误链中的系统 errno，没有时为 -1。
func Describe(err error) (code int, category, message string) {
	if err == nil {
		return 0, "", ""
	}

	code = -1
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = int(errno)
	}

	return code, Category(err), err.Error()
}

// Category 返回错误所属的类别
func Category(err error) string {
	switch {
	case errors.Is(err, ErrLoopFault):
		return CategoryFault
	case errors.Is(err, ErrAccept):
		return CategoryAccept
	case errors.Is(err, ErrDispatch):
		return CategoryDispatch
	case errors.Is(err, ErrSession), errors.Is(err, ErrTooManySessions):
		return CategorySession
	case errors.Is(err, ErrBind):
		return CategoryBind
	case errors.Is(err, ErrInvalidAddress):
		return CategoryAddress
	default:
		return CategoryUnknown
	}
}
