package handler

import (
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/sentry"
	"github.com/lk2023060901/netcore/pkg/session"
	"github.com/lk2023060901/netcore/pkg/tcp"
)

// ShutdownFunc 请求进程退出
type ShutdownFunc func() error

var _ tcp.Handler = (*Lifecycle)(nil)

// Lifecycle 记录服务端生命周期。
// 循环故障时上报 sentry 并请求进程退出。
type Lifecycle struct {
	tcp.NopHandler

	logger   logger.Logger
	sentry   *sentry.Client
	shutdown ShutdownFunc
}

// NewLifecycle 创建生命周期处理器，sc 与 shutdown 可以为 nil
func NewLifecycle(l logger.Logger, sc *sentry.Client, shutdown ShutdownFunc) *Lifecycle {
	return &Lifecycle{
		logger:   l.Named("lifecycle"),
		sentry:   sc,
		shutdown: shutdown,
	}
}

func (h *Lifecycle) OnStarting() { h.logger.Info("server starting") }
func (h *Lifecycle) OnStarted()  { h.logger.Info("server started") }
func (h *Lifecycle) OnStopping() { h.logger.Info("server stopping") }
func (h *Lifecycle) OnStopped()  { h.logger.Info("server stopped") }

func (h *Lifecycle) OnConnected(s session.Session) {
	fields := []interface{}{"session", s.ID().String()}
	if ts, ok := s.(*tcp.TCPSession); ok {
		fields = append(fields, "remote", ts.RemoteAddr().String())
	}
	h.logger.Info("session connected", fields...)
}

func (h *Lifecycle) OnDisconnected(s session.Session) {
	fields := []interface{}{"session", s.ID().String()}
	if ts, ok := s.(*tcp.TCPSession); ok {
		fields = append(fields, "received", ts.BytesReceived(), "sent", ts.BytesSent())
	}
	h.logger.Info("session disconnected", fields...)
}

func (h *Lifecycle) OnError(code int, category, message string) {
	h.logger.Warn("server error", "code", code, "category", category, "message", message)
}

// OnFatal 在循环协程上调用，不能在这里同步等待 Stop
func (h *Lifecycle) OnFatal(reason string) {
	h.logger.Error("server loop terminated", "reason", reason)

	if h.sentry != nil {
		h.sentry.CaptureMessage(reason, sentry.LevelFatal)
	}
	if h.shutdown != nil {
		go func() {
			if err := h.shutdown(); err != nil {
				h.logger.Error("shutdown after fatal failed", "error", err)
			}
		}()
	}
}
