// Package handler echo 服务的会话与生命周期处理。
package handler

import (
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/prometheus"
	"github.com/lk2023060901/netcore/pkg/tcp"
)

// Config echo 行为配置
type Config struct {
	// 为 true 时把收到的数据发给所有会话，否则只回给发送者
	Broadcast bool `mapstructure:"broadcast"`
}

const (
	modeEcho      = "echo"
	modeBroadcast = "broadcast"
)

var _ tcp.SessionHandler = (*Echo)(nil)

// Echo 回显会话数据
type Echo struct {
	cfg    Config
	logger logger.Logger

	messages *prometheus.CounterVec
	size     *prometheus.HistogramVec
}

// NewEcho 创建回显处理器，prom 为 nil 时不统计消息
func NewEcho(cfg *Config, l logger.Logger, prom *prometheus.Client) (*Echo, error) {
	e := &Echo{logger: l.Named("echo")}
	if cfg != nil {
		e.cfg = *cfg
	}

	if prom != nil {
		var err error
		if e.messages, err = prom.NewCounter("echo_messages_total", "Messages handled by the echo service.", []string{"mode"}); err != nil {
			return nil, err
		}
		if e.size, err = prom.NewHistogram("echo_message_bytes", "Size of handled messages.", nil,
			[]float64{16, 64, 256, 1024, 4096, 16384}); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// OnReceived 在服务端循环协程上调用
func (e *Echo) OnReceived(s *tcp.TCPSession, data []byte) {
	mode := modeEcho
	if e.cfg.Broadcast {
		mode = modeBroadcast
		n := s.Server().Multicast(data)
		e.logger.Debug("broadcast", "session", s.ID().String(), "bytes", len(data), "peers", n)
	} else if _, err := s.Send(data); err != nil {
		e.logger.Warn("echo failed", "session", s.ID().String(), "error", err)
		return
	}

	if e.messages != nil {
		e.messages.WithLabelValues(mode).Inc()
		e.size.WithLabelValues().Observe(float64(len(data)))
	}
}
