package app

import (
	"github.com/google/wire"
)

// Components Wire 注入时收集的服务与清理组件
type Components struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet 供 Wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// InitApp 把注入的组件挂到应用上。
// Closer 按 Shutdown 的逆序关闭，先声明的最后关闭。
func InitApp(a *BaseApp, comps Components) Application {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	return a
}

// CloserFunc 把函数适配为 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// MapCloser 把带 Close() error 的对象转换为 Closer
func MapCloser(c interface{ Close() error }) Closer {
	return CloserFunc(c.Close)
}
