//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/netcore/app/echo/internal/handler"
	"github.com/lk2023060901/netcore/pkg/app"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/sentry"
)

func InitApp(cfg *Config, l *logger.BaseLogger, sc *sentry.Client) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		provideAppOptions,
		app.ProviderSet,
		provideShutdown,

		// 2. 指标
		providePrometheus,
		provideTCPMetrics,

		// 3. 业务 Handler
		wire.FieldsOf(new(*Config), "Echo"),
		provideLogger,
		handler.NewEcho,
		handler.NewLifecycle,

		// 4. TCP Server
		provideServer,

		// 5. 组装
		provideAppComponents,
		app.InitApp,
	))
}
