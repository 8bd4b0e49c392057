package main

import (
	"time"

	"github.com/lk2023060901/netcore/app/echo/internal/handler"
	"github.com/lk2023060901/netcore/pkg/app"
	"github.com/lk2023060901/netcore/pkg/config"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/prometheus"
	"github.com/lk2023060901/netcore/pkg/sentry"
	"github.com/lk2023060901/netcore/pkg/tcp"
	"go.uber.org/zap/zapcore"
)

// Config echo 服务的完整配置
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	Server tcp.ServerConfig `mapstructure:"server"`
	Echo   handler.Config   `mapstructure:"echo"`

	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Sentry     sentry.Config     `mapstructure:"sentry"`

	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Log:         *logger.DefaultConfig(),
		Server:      *tcp.DefaultServerConfig(),
		Prometheus:  *prometheus.DefaultConfig(),
		Sentry:      *sentry.DefaultConfig(),
		StopTimeout: 10 * time.Second,
	}
}

func main() {
	cfg := defaultConfig()

	// 1. 加载配置
	mgr, err := app.LoadConfig(cfg)
	if err != nil {
		panic(err)
	}

	// 2. 错误上报需要先于日志创建，日志的 warn 以上级别作为面包屑
	sc, err := newSentry(&cfg.Sentry)
	if err != nil {
		panic(err)
	}
	if sc != nil {
		defer sc.Close()
	}

	var opts []logger.Option
	if sc != nil {
		opts = append(opts, logger.WithHooks(logger.MinLevelHook(zapcore.WarnLevel, sentry.LogHook(sc))))
	}
	l, err := logger.New(&cfg.Log, opts...)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	// 3. 配置文件变化时只更新日志级别
	watchLogLevel(mgr, l)

	// 4. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(cfg, l, sc)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 5. 运行直到收到退出信号
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}

func newSentry(cfg *sentry.Config) (*sentry.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Release == "" {
		cfg.Release = app.Version
	}
	return sentry.New(cfg)
}

func watchLogLevel(mgr config.Manager, l *logger.BaseLogger) {
	err := mgr.Watch(func() {
		level := logger.Level(mgr.GetString("log.level"))
		if level == "" || level == l.Level() {
			return
		}
		if err := config.ValidateVar(string(level), "oneof=debug info warn error panic fatal"); err != nil {
			l.Warn("ignore invalid log level", "level", level)
			return
		}
		l.SetLevel(level)
		l.Info("log level changed", "level", level)
	})
	if err != nil {
		l.Warn("config watch disabled", "error", err)
	}
}
