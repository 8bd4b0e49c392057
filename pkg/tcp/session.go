package tcp

import (
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/netcore/pkg/session"
	"go.uber.org/atomic"
)

// SessionFactory 为新连接创建会话，返回的会话独占 t
type SessionFactory func(id uuid.UUID, t Transport, srv *Server) session.Session

// DefaultSessionFactory 创建 TCPSession
func DefaultSessionFactory(id uuid.UUID, t Transport, srv *Server) session.Session {
	return NewTCPSession(id, t, srv)
}

var (
	_ session.Session = (*TCPSession)(nil)
	_ session.Sender  = (*TCPSession)(nil)
)

// TCPSession 默认的字节流会话。
// 读取在协程池中阻塞进行，收到的数据投递到服务端循环协程上交给 SessionHandler。
type TCPSession struct {
	*session.BaseSession
	server    *Server
	transport Transport
	handler   SessionHandler
	bufSize   int

	connected     atomic.Bool
	receiving     atomic.Bool
	bytesReceived atomic.Int64
	bytesSent     atomic.Int64
}

// NewTCPSession 创建会话，会话创建即处于已连接状态
func NewTCPSession(id uuid.UUID, t Transport, srv *Server) *TCPSession {
	s := &TCPSession{
		BaseSession: session.NewBaseSession(id, srv),
		server:      srv,
		transport:   t,
		handler:     srv.sessionHandler,
		bufSize:     srv.cfg.ReadBufferSize,
	}
	if s.bufSize <= 0 {
		s.bufSize = DefaultServerConfig().ReadBufferSize
	}
	s.connected.Store(true)
	return s
}

// Connect 启动读取，重复调用或已断开时无效
func (s *TCPSession) Connect() {
	if !s.connected.Load() || !s.receiving.CompareAndSwap(false, true) {
		return
	}

	if err := s.server.pool.Submit(s.receiveLoop); err != nil {
		s.server.report(errors.Mark(errors.Wrapf(err, "start receive loop for session %s", s.ID()), ErrSession))
		s.Disconnect()
	}
}

func (s *TCPSession) receiveLoop() {
	buf := make([]byte, s.bufSize)
	for {
		n, err := s.transport.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			s.bytesReceived.Add(int64(n))
			s.server.metrics.addReceived(n)

			_ = s.server.reactor.Post(func() error {
				if s.connected.Load() {
					s.handler.OnReceived(s, data)
				}
				return nil
			}, nil)
		}

		if err != nil {
			if s.connected.Load() && !isClosedConn(err) {
				s.server.reportAsync(errors.Mark(errors.Wrapf(err, "session %s read", s.ID()), ErrSession))
			}
			s.Disconnect()
			return
		}
	}
}

// Send 同步写出数据
func (s *TCPSession) Send(data []byte) (int, error) {
	if !s.connected.Load() {
		return 0, session.ErrNotConnected
	}

	n, err := s.transport.Write(data)
	if n > 0 {
		s.bytesSent.Add(int64(n))
		s.server.metrics.addSent(n)
	}
	if err != nil {
		s.Disconnect()
		return n, errors.Mark(errors.Wrapf(err, "session %s write", s.ID()), ErrSession)
	}
	return n, nil
}

// Disconnect 关闭连接并从服务端注销，只有第一次调用返回 true
func (s *TCPSession) Disconnect() bool {
	if !s.connected.CompareAndSwap(true, false) {
		return false
	}
	_ = s.transport.Close()
	s.Owner().UnregisterSession(s.ID())
	return true
}

func (s *TCPSession) IsConnected() bool {
	return s.connected.Load()
}

func (s *TCPSession) Server() *Server {
	return s.server
}

func (s *TCPSession) LocalAddr() net.Addr {
	return s.transport.LocalAddr()
}

func (s *TCPSession) RemoteAddr() net.Addr {
	return s.transport.RemoteAddr()
}

func (s *TCPSession) BytesReceived() int64 {
	return s.bytesReceived.Load()
}

func (s *TCPSession) BytesSent() int64 {
	return s.bytesSent.Load()
}

func isClosedConn(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
