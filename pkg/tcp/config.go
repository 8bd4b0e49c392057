package tcp

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/config"
)

// Engine 监听实现
type Engine string

const (
	// EngineNet 标准库 net.Listener，每次 accept 占用一个协程池 worker
	EngineNet Engine = "net"
	// EngineGnet gnet 事件循环，连接先进入 backlog 再由 accept 取出
	EngineGnet Engine = "gnet"
)

// ServerConfig 服务端配置
type ServerConfig struct {
	// 协议族通配地址，与 Address 二选一
	Protocol Protocol `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=ipv4 ipv6,excluded_with=Address"`

	// IP 字面量，如 "127.0.0.1"、"::1"
	Address string `mapstructure:"address" json:"address" yaml:"address" validate:"omitempty,ip"`

	// 端口，0 表示由系统分配
	Port int `mapstructure:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`

	Engine Engine `mapstructure:"engine" json:"engine" yaml:"engine" validate:"omitempty,oneof=net gnet"`

	// 最大会话数，0 表示不限制
	MaxSessions int `mapstructure:"max_sessions" json:"max_sessions" yaml:"max_sessions" validate:"gte=0"`

	// 每秒允许 accept 的连接数，0 表示不限制
	AcceptRate  float64 `mapstructure:"accept_rate" json:"accept_rate" yaml:"accept_rate" validate:"gte=0"`
	AcceptBurst int     `mapstructure:"accept_burst" json:"accept_burst" yaml:"accept_burst" validate:"gte=0"`

	// 启用 Nagle 算法，默认关闭（即 TCP_NODELAY）
	TCPDelay bool `mapstructure:"tcp_delay" json:"tcp_delay" yaml:"tcp_delay"`

	// TCP KeepAlive 间隔，负数表示关闭
	TCPKeepAlive time.Duration `mapstructure:"tcp_keep_alive" json:"tcp_keep_alive" yaml:"tcp_keep_alive"`

	// 会话读缓冲区大小
	ReadBufferSize int `mapstructure:"read_buffer_size" json:"read_buffer_size" yaml:"read_buffer_size" validate:"gte=0"`

	// gnet 引擎等待 accept 的连接队列长度，队列满时新连接被直接关闭
	Backlog int `mapstructure:"backlog" json:"backlog" yaml:"backlog" validate:"gte=0"`

	// 服务端自建协程池的容量，0 表示不限制。每个会话占用一个 worker，另有一个用于 accept
	WorkerPoolSize int `mapstructure:"worker_pool_size" json:"worker_pool_size" yaml:"worker_pool_size" validate:"gte=0"`

	// gnet 引擎是否启用多核事件循环
	Multicore bool `mapstructure:"multicore" json:"multicore" yaml:"multicore"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Engine:         EngineNet,
		TCPKeepAlive:   30 * time.Second,
		ReadBufferSize: 8 * 1024,
		Backlog:        1024,
	}
}

// Validate 验证服务端配置
func (c *ServerConfig) Validate() error {
	if c == nil {
		return errors.Wrap(config.ErrNilConfig, "tcp server config")
	}
	if err := config.Validate(c); err != nil {
		return err
	}
	if c.AcceptBurst == 0 && c.AcceptRate > 0 {
		return errors.Mark(errors.New("accept_burst must be positive when accept_rate is set"), config.ErrValidationFailed)
	}
	return nil
}
