// Package app 提供进程级的应用骨架：启动服务、等待信号、按序停止与清理。
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAppAlreadyRunning = errors.New("app: already running")
	ErrShutdownTimeout   = errors.New("app: shutdown timeout")
)

// Application 应用接口
type Application interface {
	Run() error
	Shutdown() error
	Logger(name string) logger.Logger
	AppLogger() logger.Logger
	SetAppLogger(l logger.Logger)
}

// Server 可启停的服务，如 tcp.Server 与指标 HTTP 服务
type Server interface {
	Start() error
	Stop() error
}

// GracefulServer 支持优雅停止的服务
type GracefulServer interface {
	Server
	GracefulStop() error
}

// Closer 资源清理接口
type Closer interface {
	Close() error
}

// BaseApp Application 的基础实现
type BaseApp struct {
	opts     Options
	logger   logger.Logger
	named    namedLoggers
	servers  []Server
	closers  []Closer

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex

	started  atomic.Bool
	closed   atomic.Bool
	finished chan struct{}
}

// NewBaseApp 创建应用
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &BaseApp{
		opts:     o,
		logger:   o.Logger.Named(o.Name),
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
	}

	if o.LogConfig != nil {
		if l, err := logger.New(o.LogConfig); err == nil {
			a.logger = l.Named(o.Name)
		}
	}

	return a
}

func (a *BaseApp) SetAppLogger(l logger.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = l
}

func (a *BaseApp) AppLogger() logger.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

// Logger 获取具名 Logger，未单独配置时从应用日志派生
func (a *BaseApp) Logger(name string) logger.Logger {
	if l, ok := a.named.get(name); ok {
		return l
	}
	return a.AppLogger().Named(name)
}

func (a *BaseApp) RegisterLogger(name string, l logger.Logger) {
	a.named.set(name, l)
}

// Context 应用生命周期的上下文，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

// Run 启动所有服务并阻塞，直到收到 SIGINT/SIGTERM 或 Shutdown 被调用
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	if len(a.opts.NamedLoggers) > 0 {
		if err := a.named.build(a.opts.NamedLoggers); err != nil {
			a.logger.Error("failed to initialize named loggers", "error", err)
			return err
		}
	}

	info := GetInfo()
	fmt.Println(info.String())

	a.logger.Info("application starting", append(info.Fields(), "id", a.opts.ID)...)

	a.mu.RLock()
	servers := append([]Server(nil), a.servers...)
	a.mu.RUnlock()

	for i, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "index", i, "error", err)
			// 已启动的服务需要停止
			_ = a.Shutdown()
			return errors.Wrap(err, "start server")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown 并发停止所有服务，超时后不再等待；之后逆序关闭 Closer。
// 只有第一次调用执行清理，之后的调用等待清理结束并返回 nil。
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		<-a.finished
		return nil
	}
	defer close(a.finished)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()
	a.logger.Info("application shutting down")

	result := a.stopServers()
	result = errors.CombineErrors(result, a.closeAll())

	a.named.sync()
	_ = a.logger.Sync()

	a.logger.Info("application exited")
	return result
}

func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加清理组件，Shutdown 时按添加的逆序关闭
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// stopServers 并发停止服务，最多等待 StopTimeout
func (a *BaseApp) stopServers() error {
	var g errgroup.Group
	for _, srv := range a.servers {
		srv := srv
		g.Go(func() error { return a.stopOne(srv) })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	timer := time.NewTimer(a.opts.StopTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "stop server")
		}
		a.logger.Info("all servers stopped")
		return nil
	case <-timer.C:
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
		return ErrShutdownTimeout
	}
}

func (a *BaseApp) stopOne(srv Server) error {
	stop := srv.Stop
	if gs, ok := srv.(GracefulServer); ok {
		stop = gs.GracefulStop
	}
	err := stop()
	if err != nil {
		a.logger.Error("failed to stop server", "error", err)
	}
	return err
}

// closeAll 按注册的逆序关闭
func (a *BaseApp) closeAll() error {
	var result error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
			result = errors.CombineErrors(result, err)
		}
	}
	return result
}
