package logger

import (
	"go.uber.org/zap/zapcore"
)

// Hook 日志钩子
type Hook interface {
	// OnWrite 在写入前调用，返回 false 丢弃该条日志
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// MinLevelHook 只让 level 及以上的日志经过 next
func MinLevelHook(level zapcore.Level, next Hook) Hook {
	return HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if entry.Level < level {
			return true
		}
		return next.OnWrite(entry, fields)
	})
}

// hookCore 钩子能看到 With 累积的字段和本次调用的字段
type hookCore struct {
	zapcore.Core
	hooks []Hook
	bound []zapcore.Field
}

func newHookCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	if len(hooks) == 0 {
		return core
	}
	return &hookCore{Core: core, hooks: hooks}
}

func (c *hookCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return ce.AddCore(entry, c)
}

func (c *hookCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.bound) > 0 {
		all = make([]zapcore.Field, 0, len(c.bound)+len(fields))
		all = append(append(all, c.bound...), fields...)
	}
	for _, h := range c.hooks {
		if !h.OnWrite(entry, all) {
			return nil
		}
	}
	// 底层 Core 已经通过 With 持有 bound
	return c.Core.Write(entry, fields)
}

func (c *hookCore) With(fields []zapcore.Field) zapcore.Core {
	bound := make([]zapcore.Field, 0, len(c.bound)+len(fields))
	bound = append(append(bound, c.bound...), fields...)
	return &hookCore{
		Core:  c.Core.With(fields),
		hooks: c.hooks,
		bound: bound,
	}
}
