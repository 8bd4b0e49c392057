package tcp

import (
	"fmt"
	"net"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/netcore/pkg/config"
	"github.com/lk2023060901/netcore/pkg/idgen"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/lk2023060901/netcore/pkg/session"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
)

const (
	armRetryDelay      = 100 * time.Millisecond
	poolReleaseTimeout = 3 * time.Second
)

var _ session.Owner = (*Server)(nil)

// Server TCP 服务端。
// 所有 accept 完成回调与会话数据回调都在同一个循环协程上串行执行。
type Server struct {
	cfg      *ServerConfig
	endpoint Endpoint

	listener        Listener
	listenerFactory ListenerFactory
	reactor         reactor.Reactor
	registry        *session.Registry
	pool            *ants.Pool
	poolOpts        []ants.Option

	handler        Handler
	sessionHandler SessionHandler
	idgen          idgen.Generator
	factory        SessionFactory
	metrics        *Metrics
	logger         logger.Logger

	// Start/Stop/Close 依次执行，mu 只保护 busy，钩子运行期间不持有
	mu    sync.Mutex
	busy  chan struct{}
	owner atomic.Uint64 // 正在执行 Start/Stop/Close 的协程
	loop  atomic.Uint64 // 循环协程

	started        atomic.Bool
	stopping       atomic.Bool
	faulted        atomic.Bool
	closeRequested atomic.Bool
	closed         atomic.Bool
	done           chan struct{}
}

// New 创建服务端并绑定监听地址，此时尚未开始 accept
func New(cfg *ServerConfig, opts ...Option) (*Server, error) {
	merged, err := config.MergeConfig(DefaultServerConfig(), cfg)
	if err != nil {
		return nil, err
	}

	ep, err := Resolve(merged)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:            merged,
		endpoint:       ep,
		reactor:        reactor.New(),
		registry:       session.NewRegistry(),
		handler:        NopHandler{},
		sessionHandler: NopSessionHandler{},
		idgen:          idgen.Default(),
		factory:        DefaultSessionFactory,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Default().Named("tcp.server")
	}

	poolOpts := append([]ants.Option{
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("tcp server worker panic", "panic", p, "stack", string(debug.Stack()))
		}),
	}, s.poolOpts...)
	// 放在最后，循环协程上的 Submit 不能阻塞
	poolOpts = append(poolOpts, ants.WithNonblocking(true))
	pool, err := ants.NewPool(merged.WorkerPoolSize, poolOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	s.pool = pool

	if s.listenerFactory == nil {
		s.listenerFactory = netListenerFactory
		if merged.Engine == EngineGnet {
			s.listenerFactory = gnetListenerFactory
		}
	}

	ln, err := s.listenerFactory(ep, merged, s.reactor, s.pool, s.logger)
	if err != nil {
		s.release()
		return nil, err
	}
	s.listener = ln

	s.logger.Info("tcp server bound",
		"endpoint", ep.String(),
		"addr", ln.Addr().String(),
		"engine", string(merged.Engine),
	)
	return s, nil
}

// NewServer 在协议族通配地址上创建服务端
func NewServer(p Protocol, port int, opts ...Option) (*Server, error) {
	return New(&ServerConfig{Protocol: p, Port: port}, opts...)
}

// NewServerWithAddress 在指定 IP 上创建服务端
func NewServerWithAddress(address string, port int, opts ...Option) (*Server, error) {
	return New(&ServerConfig{Address: address, Port: port}, opts...)
}

// Start 启动服务端循环，已启动时直接返回。
// 返回时第一次 accept 可能尚未发起，期间到达的连接在内核队列中等待。
// 在钩子中调用时不会等待，停止过程中返回 ErrServerStopping。
func (s *Server) Start() error {
	gid := goroutineID()
	if s.reentered(gid) {
		if s.stopping.Load() {
			return ErrServerStopping
		}
		return nil
	}
	s.enter(gid)
	defer s.leave()

	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.started.Load() {
		return nil
	}

	s.handler.OnStarting()

	// OnStarting 中调用了 Close
	if s.closeRequested.Load() {
		if err := s.close(); err != nil {
			return err
		}
		return ErrServerClosed
	}

	s.reactor.Restart()
	s.done = make(chan struct{})
	s.faulted.Store(false)
	s.started.Store(true)
	go s.run(s.done)

	s.logger.Info("tcp server started", "addr", s.Addr().String())
	return nil
}

// enter 等待其他协程上的 Start/Stop/Close 结束，然后由 gid 占有
func (s *Server) enter(gid uint64) {
	s.mu.Lock()
	for s.busy != nil {
		busy := s.busy
		s.mu.Unlock()
		<-busy
		s.mu.Lock()
	}
	s.busy = make(chan struct{})
	s.owner.Store(gid)
	s.mu.Unlock()
}

func (s *Server) leave() {
	s.mu.Lock()
	s.owner.Store(0)
	close(s.busy)
	s.busy = nil
	s.mu.Unlock()
}

// reentered 当前协程正在执行 Start/Stop/Close 的钩子，或者就是循环协程。
// 这两种情况下等待 busy 或 done 都会等到自己。
func (s *Server) reentered(gid uint64) bool {
	if gid == 0 {
		return false
	}
	return gid == s.owner.Load() || gid == s.loop.Load()
}

func (s *Server) run(done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	s.loop.Store(goroutineID())
	defer s.loop.Store(0)

	s.handler.OnThreadInitialize()
	defer s.handler.OnThreadCleanup()

	if err := s.serve(); err != nil {
		s.faulted.Store(true)
		s.metrics.incError(CategoryFault)
		s.logger.Error("tcp server loop exited", "error", err, "started", s.started.Load())
		s.handler.OnFatal(fmt.Sprintf("tcp server loop terminated: %v", err))
	}
}

// serve 运行事件循环，循环中的 panic 转换为 ErrLoopFault 返回
func (s *Server) serve() (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "panic")
			} else {
				err = errors.Newf("panic: %v", r)
			}
			err = errors.Mark(err, ErrLoopFault)
			s.logger.Error("tcp server loop fault", "error", err, "stack", string(stack))
		}
	}()

	s.handler.OnStarted()
	s.arm()

	for s.started.Load() {
		if err := s.reactor.Run(); err != nil {
			s.report(errors.Mark(err, ErrDispatch))
		}
	}

	s.handler.OnStopped()
	return nil
}

// arm 发起下一次 accept，只在循环协程上调用
func (s *Server) arm() {
	if !s.started.Load() {
		return
	}

	err := s.listener.AcceptOnce(s.onAccept)
	if err == nil || errors.Is(err, ErrAcceptPending) {
		return
	}

	s.report(err)
	if errors.Is(err, ErrListenerClosed) {
		return
	}
	time.AfterFunc(armRetryDelay, func() {
		_ = s.reactor.Post(func() error {
			s.arm()
			return nil
		}, nil)
	})
}

func (s *Server) onAccept(t Transport, err error) {
	if err != nil {
		s.report(err)
	} else {
		s.registerSession(t)
	}
	s.arm()
}

func (s *Server) registerSession(t Transport) {
	if !s.started.Load() {
		_ = t.Close()
		return
	}

	if limit := s.cfg.MaxSessions; limit > 0 && s.registry.Count() >= limit {
		_ = t.Close()
		s.report(errors.Mark(
			errors.Newf("session limit %d reached, rejected %s", limit, t.RemoteAddr()),
			ErrTooManySessions,
		))
		return
	}

	id, err := s.idgen.Generate()
	if err != nil {
		_ = t.Close()
		s.report(errors.Mark(errors.Wrap(err, "generate session id"), ErrSession))
		return
	}

	sess := s.factory(id, t, s)
	if !s.registry.Insert(sess) {
		_ = t.Close()
		s.report(errors.Mark(errors.Newf("duplicate session id %s", id), ErrSession))
		return
	}

	s.metrics.incAccepted()
	s.metrics.setSessions(s.registry.Count())
	s.logger.Debug("session connected", "session_id", id.String(), "remote", t.RemoteAddr().String())

	s.handler.OnConnected(sess)
	sess.Connect()
}

// UnregisterSession 从注册表移除会话，会话存在时触发 OnDisconnected
func (s *Server) UnregisterSession(id uuid.UUID) {
	sess, ok := s.registry.Remove(id)
	if !ok {
		return
	}

	s.metrics.setSessions(s.registry.Count())
	s.logger.Debug("session disconnected", "session_id", id.String())
	s.handler.OnDisconnected(sess)
}

// Stop 停止服务端，未启动时直接返回且不触发任何钩子。
// 返回后所有会话已断开、循环协程已退出；并发调用的 Stop 都等到这一刻才返回。
// 在 OnStopping、OnDisconnected 等停止过程中的钩子里调用时直接返回 nil。
// 在循环协程上调用无法等待自己退出，返回 ErrLoopReentry。
func (s *Server) Stop() error {
	gid := goroutineID()
	if s.reentered(gid) {
		if s.stopping.Load() || gid != s.loop.Load() {
			return nil
		}
		return ErrLoopReentry
	}
	s.enter(gid)
	defer s.leave()

	s.stop()
	if s.closeRequested.Load() {
		return s.close()
	}
	return nil
}

// stop 只在占有 busy 的协程上调用
func (s *Server) stop() {
	if !s.started.Load() {
		return
	}
	s.stopping.Store(true)
	defer s.stopping.Store(false)

	s.handler.OnStopping()
	s.started.Store(false)

	s.DisconnectAll()

	s.reactor.Stop()
	<-s.done

	s.listener.Cancel()
	if n := s.reactor.Discard(); n > 0 {
		s.logger.Debug("discarded pending completions", "count", n)
	}

	// 循环停止前最后一刻注册的会话
	s.DisconnectAll()

	s.logger.Info("tcp server stopped")
}

// Close 停止服务端并释放监听套接字，关闭后不能再 Start。
// 在钩子中调用时只记下请求，由当前的 Start/Stop 结束前完成关闭。
func (s *Server) Close() error {
	gid := goroutineID()
	if s.reentered(gid) {
		if s.stopping.Load() || gid != s.loop.Load() {
			s.closeRequested.Store(true)
			return nil
		}
		return ErrLoopReentry
	}
	s.enter(gid)
	defer s.leave()

	return s.close()
}

func (s *Server) close() error {
	s.stop()
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.listener.Close()
	_ = s.reactor.Close()
	s.release()
	s.logger.Info("tcp server closed")
	return err
}

func (s *Server) release() {
	if err := s.pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
		s.logger.Warn("release worker pool", "error", err)
	}
}

// DisconnectAll 断开所有会话，遍历的是快照，断开过程中不持有注册表锁
func (s *Server) DisconnectAll() {
	s.registry.Range(func(sess session.Session) bool {
		sess.Disconnect()
		return true
	})
}

// Multicast 向所有可发送的会话写出 data，返回成功的会话数
func (s *Server) Multicast(data []byte) int {
	sent := 0
	s.registry.Range(func(sess session.Session) bool {
		if sender, ok := sess.(session.Sender); ok {
			if _, err := sender.Send(data); err == nil {
				sent++
			}
		}
		return true
	})
	return sent
}

// SendTo 向指定会话写出 data
func (s *Server) SendTo(id uuid.UUID, data []byte) (int, error) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return 0, session.ErrSessionNotFound
	}
	sender, ok := sess.(session.Sender)
	if !ok {
		return 0, errors.Mark(errors.Newf("session %s cannot send", id), ErrSession)
	}
	return sender.Send(data)
}

// Dispatch 将 fn 投递到循环协程执行，fn 返回的错误以 dispatch 类别报告
func (s *Server) Dispatch(fn func() error) error {
	return s.reactor.Post(fn, nil)
}

func (s *Server) FindSession(id uuid.UUID) (session.Session, bool) {
	return s.registry.Get(id)
}

func (s *Server) SessionCount() int {
	return s.registry.Count()
}

// Sessions 返回按 ID 排序的会话快照
func (s *Server) Sessions() []session.Session {
	return s.registry.Snapshot()
}

func (s *Server) IsStarted() bool {
	return s.started.Load()
}

// Faulted 循环协程因 LoopFault 退出后为 true，此时 IsStarted 仍为 true，直到 Stop。
// 下一次 Start 时清除。
func (s *Server) Faulted() bool {
	return s.faulted.Load()
}

// Addr 返回实际绑定的地址，端口为 0 时可以由此得到系统分配的端口
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Endpoint() Endpoint {
	return s.endpoint
}

// Config 返回生效的配置副本
func (s *Server) Config() ServerConfig {
	return *s.cfg
}

// report 通过 OnError 报告错误，只在循环协程上调用
func (s *Server) report(err error) {
	code, category, message := Describe(err)
	s.metrics.incError(category)
	s.logger.Warn("tcp server error", "code", code, "category", category, "error", message)
	s.handler.OnError(code, category, message)
}

// reportAsync 从其他协程报告错误
func (s *Server) reportAsync(err error) {
	_ = s.reactor.Post(func() error {
		s.report(err)
		return nil
	}, nil)
}
