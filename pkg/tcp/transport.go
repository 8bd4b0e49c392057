package tcp

import (
	"io"
	"net"
)

// Transport 会话独占的字节流连接，net.Conn 天然满足该接口
type Transport interface {
	io.ReadWriteCloser
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

var _ Transport = (net.Conn)(nil)
