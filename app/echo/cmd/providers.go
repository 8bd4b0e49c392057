package main

import (
	"github.com/lk2023060901/netcore/app/echo/internal/handler"
	"github.com/lk2023060901/netcore/pkg/app"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/prometheus"
	"github.com/lk2023060901/netcore/pkg/tcp"
)

func provideLogger(l *logger.BaseLogger) logger.Logger {
	return l
}

func provideAppOptions(cfg *Config, l *logger.BaseLogger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithNamedLoggers(cfg.Loggers),
		app.WithStopTimeout(cfg.StopTimeout),
	}
}

func provideShutdown(a *app.BaseApp) handler.ShutdownFunc {
	return a.Shutdown
}

// providePrometheus 未启用 HTTP 导出时仍创建注册表，指标照常统计
func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, error) {
	return prometheus.New(&cfg.Prometheus, prometheus.WithLogger(l.Named("metrics")))
}

func provideTCPMetrics(cfg *Config, prom *prometheus.Client) (*tcp.Metrics, error) {
	return tcp.NewMetrics(cfg.Prometheus.Namespace, prom.Registry())
}

func provideServer(
	cfg *Config,
	l logger.Logger,
	echo *handler.Echo,
	lifecycle *handler.Lifecycle,
	metrics *tcp.Metrics,
) (*tcp.Server, func(), error) {
	srv, err := tcp.New(&cfg.Server,
		tcp.WithHandler(lifecycle),
		tcp.WithSessionHandler(echo),
		tcp.WithMetrics(metrics),
		tcp.WithLogger(l.Named("tcp.server")),
	)
	if err != nil {
		return nil, nil, err
	}
	return srv, func() { _ = srv.Close() }, nil
}

func provideAppComponents(srv *tcp.Server, prom *prometheus.Client) app.Components {
	return app.Components{
		// 指标服务先启动，停止时并发进行
		Servers: []app.Server{prom, srv},
		Closers: []app.Closer{prom},
	}
}
