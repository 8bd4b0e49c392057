package idgen

import (
	"sync"

	"github.com/google/uuid"
)

var (
	global Generator = NewTimeOrdered()
	mu     sync.RWMutex
)

// Init 替换全局 ID 生成器
func Init(g Generator) {
	if g == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	global = g
}

// Default 返回全局 ID 生成器
func Default() Generator {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Next 使用全局生成器生成 ID
func Next() (uuid.UUID, error) {
	return Default().Generate()
}
