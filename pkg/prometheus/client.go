// Package prometheus 封装独立的指标注册表与 /metrics HTTP 服务。
package prometheus

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client 指标客户端。
// 实现 Start/Stop，可以直接作为应用的 Server 注册。
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	counters   sync.Map // name -> *CounterVec
	gauges     sync.Map // name -> *GaugeVec
	histograms sync.Map // name -> *HistogramVec

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr

	closed atomic.Bool
}

// Option 客户端选项
type Option func(*Client)

// WithLogger 设置 HTTP 服务错误的日志输出
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New 创建指标客户端，HTTP 服务在 Start 时才监听
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return c, nil
}

// Registry 返回底层注册表
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回指标 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (c *Client) Config() *Config {
	return c.config
}

// Start 监听并启动 HTTP 服务，未启用时直接返回。
// 监听失败同步返回，Serve 的错误只记录日志。
func (c *Client) Start() error {
	if !c.config.HTTPServer.Enabled {
		return nil
	}
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpServer != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "prometheus: listen %s", c.config.HTTPServer.Addr)
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}
	c.httpServer = srv
	c.addr = ln.Addr()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics http server stopped", "addr", ln.Addr().String(), "error", err)
		}
	}()

	c.logger.Info("metrics http server listening", "addr", ln.Addr().String(), "path", c.config.HTTPServer.Path)
	return nil
}

// Stop 关闭 HTTP 服务，可以再次 Start
func (c *Client) Stop() error {
	c.mu.Lock()
	srv := c.httpServer
	c.httpServer = nil
	c.addr = nil
	c.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr 返回 HTTP 服务的实际监听地址，未启动时为 nil
func (c *Client) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Close 关闭客户端，之后不能再注册指标
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	return c.Stop()
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
