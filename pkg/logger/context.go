package logger

import (
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// ContextWithFields 在 ctx 上追加日志字段，*Context 系列方法会带上它们
func ContextWithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev := FieldsFromContext(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(append(merged, prev...), fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func FieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

// DefaultContextExtractor 取 ContextWithFields 写入的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	return FieldsFromContext(ctx)
}
