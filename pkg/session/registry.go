package session

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry 并发安全的会话注册表。
// 锁只保护 map 本身，任何会话方法或回调都在锁外调用。
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewRegistry 创建一个新的会话注册表。
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]Session),
	}
}

// Insert 注册会话，ID 已存在时不覆盖并返回 false。
func (r *Registry) Insert(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	if _, exists := r.sessions[id]; exists {
		return false
	}
	r.sessions[id] = s
	return true
}

// Remove 移除并返回指定 ID 的会话。
func (r *Registry) Remove(id uuid.UUID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// Get 获取指定 ID 的会话。
func (r *Registry) Get(id uuid.UUID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count 返回当前会话数量。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot 返回当前所有会话的副本，按 ID 字节序排序。
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i].ID(), sessions[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return sessions
}

// Range 遍历快照，f 返回 false 时停止。遍历期间可以安全地修改注册表。
func (r *Registry) Range(f func(s Session) bool) {
	for _, s := range r.Snapshot() {
		if !f(s) {
			return
		}
	}
}
