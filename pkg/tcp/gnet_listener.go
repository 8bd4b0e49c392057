package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"
)

const gnetStopTimeout = 5 * time.Second

// gnetListener 基于 gnet 事件循环的监听实现。
// 事件循环在 OnOpen 中把新连接放入 backlog，accept 从 backlog 取出。
type gnetListener struct {
	gnet.BuiltinEventEngine
	*acceptor

	cfg     *ServerConfig
	engine  gnet.Engine
	addr    net.Addr
	backlog chan *gnetTransport
	booted  chan struct{}
	runErr  chan error
	done    chan struct{}
}

func newGnetListener(ep Endpoint, cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) (*gnetListener, error) {
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = DefaultServerConfig().Backlog
	}

	gl := &gnetListener{
		acceptor: newAcceptor(cfg, r, pool, l),
		cfg:      cfg,
		backlog:  make(chan *gnetTransport, backlog),
		booted:   make(chan struct{}),
		runErr:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	gl.accept = gl.acceptConn

	opts := []gnet.Option{
		gnet.WithMulticore(cfg.Multicore),
		gnet.WithReuseAddr(true),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
	}
	if cfg.TCPDelay {
		opts[2] = gnet.WithTCPNoDelay(gnet.TCPDelay)
	}
	if cfg.TCPKeepAlive > 0 {
		opts = append(opts, gnet.WithTCPKeepAlive(cfg.TCPKeepAlive))
	}
	if cfg.ReadBufferSize > 0 {
		opts = append(opts, gnet.WithReadBufferCap(cfg.ReadBufferSize))
	}
	if bl, ok := l.(*logger.BaseLogger); ok {
		opts = append(opts, gnet.WithLogger(bl.Zap().Sugar()))
	}

	protoAddr := fmt.Sprintf("%s://%s", ep.Network, ep)
	go func() {
		gl.runErr <- gnet.Run(gl, protoAddr, opts...)
	}()

	select {
	case <-gl.booted:
	case err := <-gl.runErr:
		if err == nil {
			err = errors.New("gnet engine exited during boot")
		}
		return nil, errors.Mark(errors.Wrapf(err, "listen %s", protoAddr), ErrBind)
	}

	addr, err := gl.boundAddr()
	if err != nil {
		_ = gl.stopEngine()
		return nil, errors.Mark(errors.Wrap(err, "resolve bound address"), ErrBind)
	}
	gl.addr = addr
	return gl, nil
}

// boundAddr 复制监听 fd 并读取实际绑定地址，端口为 0 时由此获得系统分配的端口
func (l *gnetListener) boundAddr() (net.Addr, error) {
	fd, err := l.engine.Dup()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}

	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return net.TCPAddrFromAddrPort(netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))), nil
	case *unix.SockaddrInet6:
		return net.TCPAddrFromAddrPort(netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))), nil
	default:
		return nil, errors.Newf("unexpected socket address %T", sa)
	}
}

func (l *gnetListener) OnBoot(eng gnet.Engine) gnet.Action {
	l.engine = eng
	close(l.booted)
	return gnet.None
}

func (l *gnetListener) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	t := newGnetTransport(c)
	c.SetContext(t)

	select {
	case <-l.done:
		return nil, gnet.Close
	default:
	}

	select {
	case l.backlog <- t:
		return nil, gnet.None
	default:
		l.logger.Warn("gnet backlog full, rejecting connection", "remote", c.RemoteAddr())
		return nil, gnet.Close
	}
}

func (l *gnetListener) OnTraffic(c gnet.Conn) gnet.Action {
	t, ok := c.Context().(*gnetTransport)
	if !ok {
		return gnet.Close
	}
	data, _ := c.Next(-1)
	t.feed(data)
	return gnet.None
}

func (l *gnetListener) OnClose(c gnet.Conn, err error) gnet.Action {
	if t, ok := c.Context().(*gnetTransport); ok {
		t.markEOF(err)
	}
	return gnet.None
}

func (l *gnetListener) acceptConn(ctx context.Context) (Transport, error) {
	select {
	case t := <-l.backlog:
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *gnetListener) Addr() net.Addr {
	return l.addr
}

func (l *gnetListener) Close() error {
	if !l.shutdown() {
		return nil
	}
	close(l.done)
	l.wait()

	err := l.stopEngine()
	for {
		select {
		case t := <-l.backlog:
			_ = t.Close()
		default:
			return err
		}
	}
}

func (l *gnetListener) stopEngine() error {
	ctx, cancel := context.WithTimeout(context.Background(), gnetStopTimeout)
	defer cancel()

	if err := l.engine.Stop(ctx); err != nil {
		return errors.Wrap(err, "stop gnet engine")
	}
	select {
	case err := <-l.runErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// gnetTransport 把 gnet 的事件回调适配为阻塞式 Transport。
// 入站数据由事件循环写入缓冲区，Read 在缓冲区为空时等待。
type gnetTransport struct {
	conn   gnet.Conn
	local  net.Addr
	remote net.Addr

	mu     sync.Mutex
	cond   *sync.Cond
	buf    *bytebufferpool.ByteBuffer
	eof    bool
	err    error
	closed bool
}

func newGnetTransport(c gnet.Conn) *gnetTransport {
	t := &gnetTransport{
		conn:   c,
		local:  c.LocalAddr(),
		remote: c.RemoteAddr(),
		buf:    bytebufferpool.Get(),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *gnetTransport) feed(data []byte) {
	if len(data) == 0 {
		return
	}
	t.mu.Lock()
	if !t.closed && !t.eof {
		_, _ = t.buf.Write(data)
	}
	t.mu.Unlock()
	t.cond.Signal()
}

func (t *gnetTransport) markEOF(err error) {
	t.mu.Lock()
	t.eof = true
	t.err = err
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Read 对端关闭后先读完缓冲区中剩余的数据，再返回 io.EOF
func (t *gnetTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.closed && !t.eof && t.buf.Len() == 0 {
		t.cond.Wait()
	}
	if t.closed {
		return 0, net.ErrClosed
	}
	if t.buf.Len() > 0 {
		n := copy(p, t.buf.B)
		t.buf.B = t.buf.B[:copy(t.buf.B, t.buf.B[n:])]
		return n, nil
	}
	if t.err != nil {
		return 0, t.err
	}
	return 0, io.EOF
}

func (t *gnetTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	closed := t.closed || t.eof
	t.mu.Unlock()
	if closed {
		return 0, net.ErrClosed
	}

	// AsyncWrite 返回后事件循环才会真正写出，需要复制一份
	data := append([]byte(nil), p...)
	if err := t.conn.AsyncWrite(data, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *gnetTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	bytebufferpool.Put(t.buf)
	t.buf = nil
	eof := t.eof
	t.mu.Unlock()
	t.cond.Broadcast()

	if eof {
		return nil
	}
	return t.conn.Close()
}

func (t *gnetTransport) LocalAddr() net.Addr  { return t.local }
func (t *gnetTransport) RemoteAddr() net.Addr { return t.remote }
