package sentry

import (
	"github.com/lk2023060901/netcore/pkg/logger"
	"go.uber.org/zap/zapcore"
)

// LogHook 把日志写成面包屑，配合 logger.MinLevelHook 过滤级别。
// 日志照常输出，钩子始终返回 true。
func LogHook(c *Client) logger.Hook {
	return logger.HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if c == nil {
			return true
		}

		var data map[string]interface{}
		if len(fields) > 0 {
			enc := zapcore.NewMapObjectEncoder()
			for _, f := range fields {
				f.AddTo(enc)
			}
			data = enc.Fields
		}

		category := entry.LoggerName
		if category == "" {
			category = "log"
		}
		c.AddBreadcrumb(category, entry.Message, levelFromZap(entry.Level), data)
		return true
	})
}
