package tcp

import (
	"github.com/lk2023060901/netcore/pkg/idgen"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/panjf2000/ants/v2"
)

// Option 服务端选项
type Option func(*Server)

// ListenerFactory 创建并绑定监听套接字
type ListenerFactory func(ep Endpoint, cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) (Listener, error)

// WithHandler 设置生命周期钩子
func WithHandler(h Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithSessionHandler 设置 TCPSession 的数据回调
func WithSessionHandler(h SessionHandler) Option {
	return func(s *Server) {
		if h != nil {
			s.sessionHandler = h
		}
	}
}

// WithLogger 设置日志记录器，默认使用 logger.Default().Named("tcp.server")
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithIDGenerator 设置会话 ID 生成器，默认使用 idgen.Default()
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Server) {
		if g != nil {
			s.idgen = g
		}
	}
}

// WithSessionFactory 设置会话工厂
func WithSessionFactory(f SessionFactory) Option {
	return func(s *Server) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPoolOptions 追加服务端协程池的 ants 选项，容量由 ServerConfig.WorkerPoolSize 决定。
// 每个会话的读取会长期占用一个 worker。提交发生在循环协程上，池总是以非阻塞方式创建，
// 池满时 accept 与会话启动按失败报告。
func WithPoolOptions(opts ...ants.Option) Option {
	return func(s *Server) {
		s.poolOpts = append(s.poolOpts, opts...)
	}
}

// WithListenerFactory 替换监听实现，设置后忽略配置中的 Engine
func WithListenerFactory(f ListenerFactory) Option {
	return func(s *Server) {
		s.listenerFactory = f
	}
}

func netListenerFactory(ep Endpoint, cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) (Listener, error) {
	nl, err := newNetListener(ep, cfg, r, pool, l)
	if err != nil {
		return nil, err
	}
	return nl, nil
}

func gnetListenerFactory(ep Endpoint, cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) (Listener, error) {
	gl, err := newGnetListener(ep, cfg, r, pool, l)
	if err != nil {
		return nil, err
	}
	return gl, nil
}

