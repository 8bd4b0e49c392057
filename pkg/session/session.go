// Package session 提供会话标识、会话接口以及并发安全的会话注册表。
// 会话使用 uuid.UUID 作为标识，具体的传输层会话（如 tcp.TCPSession）实现 Session 接口。
package session

import (
	"github.com/google/uuid"
)

// Session 定义会话的基础接口。
type Session interface {
	// ID 返回会话的唯一标识。
	ID() uuid.UUID
	// Connect 开始会话 I/O，在会话注册并触发 OnConnected 之后调用。
	Connect()
	// Disconnect 断开会话；会话已断开时返回 false。
	// 实现必须在断开后调用 Owner.UnregisterSession。
	Disconnect() bool
}

// Sender 可发送数据的会话。
type Sender interface {
	Send(data []byte) (int, error)
}

// Owner 会话所属的服务端（非拥有引用）。
type Owner interface {
	// UnregisterSession 从注册表移除会话，未知 ID 时静默忽略。
	UnregisterSession(id uuid.UUID)
}

// BaseSession 提供 ID 与 Owner 的基础实现，供具体会话嵌入。
type BaseSession struct {
	id    uuid.UUID
	owner Owner
}

// NewBaseSession 创建一个新的基础会话。
func NewBaseSession(id uuid.UUID, owner Owner) *BaseSession {
	return &BaseSession{id: id, owner: owner}
}

// ID 返回会话 ID。
func (s *BaseSession) ID() uuid.UUID {
	return s.id
}

// Owner 返回所属服务端。
func (s *BaseSession) Owner() Owner {
	return s.owner
}
