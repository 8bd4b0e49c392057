// Package idgen 提供会话唯一标识生成器。
package idgen

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Generator ID 生成器接口
type Generator interface {
	// Generate 生成一个全局唯一的 ID
	Generate() (uuid.UUID, error)
}

// GeneratorFunc 函数式 Generator
type GeneratorFunc func() (uuid.UUID, error)

func (f GeneratorFunc) Generate() (uuid.UUID, error) {
	return f()
}

type timeOrderedGenerator struct{}

// NewTimeOrdered 创建基于 UUIDv7 的生成器，ID 按生成时间递增
func NewTimeOrdered() Generator {
	return timeOrderedGenerator{}
}

func (timeOrderedGenerator) Generate() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to generate uuid v7")
	}
	return id, nil
}

type randomGenerator struct{}

// NewRandom 创建基于 UUIDv4 的随机生成器
func NewRandom() Generator {
	return randomGenerator{}
}

func (randomGenerator) Generate() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to generate uuid v4")
	}
	return id, nil
}
