package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/netcore/pkg/logger"
)

// Options 应用选项
type Options struct {
	ID          string
	Name        string
	Version     string
	Metadata    map[string]string
	StopTimeout time.Duration
	Logger      logger.Logger

	LogConfig    *logger.Config
	NamedLoggers map[string]*logger.Config
}

// Option 选项函数
type Option func(*Options)

// DefaultOptions 返回默认选项，实例 ID 为随机 UUID
func DefaultOptions() Options {
	return Options{
		ID:          uuid.NewString(),
		Name:        AppName,
		Version:     Version,
		Metadata:    make(map[string]string),
		StopTimeout: 30 * time.Second,
		Logger:      logger.Default(),
	}
}

// WithLogConfig 使用配置创建应用日志，创建失败时保留 Logger
func WithLogConfig(cfg *logger.Config) Option {
	return func(o *Options) { o.LogConfig = cfg }
}

// WithNamedLoggers 在 Run 时按配置创建具名日志
func WithNamedLoggers(loggers map[string]*logger.Config) Option {
	return func(o *Options) { o.NamedLoggers = loggers }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithVersion(v string) Option {
	return func(o *Options) { o.Version = v }
}

func WithMetadata(md map[string]string) Option {
	return func(o *Options) { o.Metadata = md }
}

// WithStopTimeout 设置等待服务停止的最长时间
func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.StopTimeout = t
		}
	}
}
