// Package sentry 封装 sentry-go，提供独立 Hub 的错误上报客户端。
package sentry

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

// Client 错误上报客户端
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		eventsTotal    atomic.Uint64
		eventsCaptured atomic.Uint64
		eventsDropped  atomic.Uint64
	}
}

// Option 客户端选项，作用于底层 ClientOptions
type Option func(*sentry.ClientOptions)

// WithBeforeSend 设置事件发送前的回调，返回 nil 丢弃事件
func WithBeforeSend(fn func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) {
		o.BeforeSend = fn
	}
}

// New 创建客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := cfg.toClientOptions()
	for _, opt := range opts {
		opt(&options)
	}

	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, errors.Wrap(err, "sentry: create client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range cfg.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: cfg}, nil
}

// CaptureException 上报错误
func (c *Client) CaptureException(err error) *sentry.EventID {
	if c.closed.Load() || err == nil {
		return nil
	}
	return c.count(c.hub.CaptureException(err))
}

// CaptureMessage 以指定级别上报消息
func (c *Client) CaptureMessage(message string, level Level) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}

	var id *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level.toSentryLevel())
		id = c.hub.CaptureMessage(message)
	})
	return c.count(id)
}

// RecoverWithContext 上报已恢复的 panic，不重新抛出
func (c *Client) RecoverWithContext(recovered interface{}) *sentry.EventID {
	if c.closed.Load() || recovered == nil {
		return nil
	}
	return c.count(c.hub.RecoverWithContext(nil, recovered))
}

// AddBreadcrumb 记录面包屑，随下一次上报一起发送
func (c *Client) AddBreadcrumb(category, message string, level Level, data map[string]interface{}) {
	if c.closed.Load() {
		return
	}
	c.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     level.toSentryLevel(),
		Data:      data,
		Timestamp: time.Now(),
	}, nil)
}

func (c *Client) count(id *sentry.EventID) *sentry.EventID {
	c.stats.eventsTotal.Add(1)
	if id != nil && *id != "" {
		c.stats.eventsCaptured.Add(1)
	} else {
		c.stats.eventsDropped.Add(1)
	}
	return id
}

// Hub 返回底层 Hub
func (c *Client) Hub() *sentry.Hub {
	return c.hub
}

// Flush 等待已排队的事件发送完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 刷新并关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.stats.eventsTotal.Load(),
		EventsCaptured: c.stats.eventsCaptured.Load(),
		EventsDropped:  c.stats.eventsDropped.Load(),
	}
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
