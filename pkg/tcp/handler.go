package tcp

import "github.com/lk2023060901/netcore/pkg/session"

// Handler 服务端生命周期钩子。
// OnStarted、OnStopped、OnThreadInitialize、OnThreadCleanup、OnFatal 以及
// accept 相关的 OnConnected、OnError 在服务端循环协程上调用；
// OnStarting、OnStopping 在调用 Start、Stop 的协程上调用；
// OnDisconnected 在触发断开的协程上调用。
type Handler interface {
	OnStarting()
	OnStarted()
	OnStopping()
	OnStopped()

	// OnConnected 会话已注册，尚未开始读取
	OnConnected(s session.Session)
	// OnDisconnected 会话已从注册表移除，每个会话最多一次
	OnDisconnected(s session.Session)

	// OnError 报告不影响循环继续运行的错误，参数含义见 Describe
	OnError(code int, category, message string)

	OnThreadInitialize()
	OnThreadCleanup()

	// OnFatal 循环因未恢复的故障退出，之后仍需调用 Stop 完成清理
	OnFatal(reason string)
}

// NopHandler 空实现，可嵌入以只覆盖需要的钩子
type NopHandler struct{}

func (NopHandler) OnStarting()                                {}
func (NopHandler) OnStarted()                                 {}
func (NopHandler) OnStopping()                                {}
func (NopHandler) OnStopped()                                 {}
func (NopHandler) OnConnected(s session.Session)              {}
func (NopHandler) OnDisconnected(s session.Session)           {}
func (NopHandler) OnError(code int, category, message string) {}
func (NopHandler) OnThreadInitialize()                        {}
func (NopHandler) OnThreadCleanup()                           {}
func (NopHandler) OnFatal(reason string)                      {}

// SessionHandler TCPSession 的数据回调，在服务端循环协程上调用
type SessionHandler interface {
	OnReceived(s *TCPSession, data []byte)
}

// SessionHandlerFunc 函数式 SessionHandler
type SessionHandlerFunc func(s *TCPSession, data []byte)

func (f SessionHandlerFunc) OnReceived(s *TCPSession, data []byte) {
	f(s, data)
}

// NopSessionHandler 丢弃所有数据
type NopSessionHandler struct{}

func (NopSessionHandler) OnReceived(s *TCPSession, data []byte) {}
