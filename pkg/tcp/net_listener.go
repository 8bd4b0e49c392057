package tcp

import (
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/panjf2000/ants/v2"
)

// netListener 基于 net.TCPListener 的监听实现
type netListener struct {
	*acceptor
	ln  *net.TCPListener
	cfg *ServerConfig
}

func newNetListener(ep Endpoint, cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) (*netListener, error) {
	lc := net.ListenConfig{KeepAlive: cfg.TCPKeepAlive}
	ln, err := lc.Listen(context.Background(), ep.Network, ep.String())
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "listen %s %s", ep.Network, ep), ErrBind)
	}

	nl := &netListener{
		acceptor: newAcceptor(cfg, r, pool, l),
		ln:       ln.(*net.TCPListener),
		cfg:      cfg,
	}
	nl.accept = nl.acceptConn
	// deadline 设为当前时间可以让阻塞中的 Accept 立即返回
	nl.interrupt = func() { _ = nl.ln.SetDeadline(time.Now()) }
	nl.resume = func() { _ = nl.ln.SetDeadline(time.Time{}) }
	return nl, nil
}

func (l *netListener) acceptConn(ctx context.Context) (Transport, error) {
	conn, err := l.ln.AcceptTCP()
	if err != nil {
		return nil, err
	}

	if err := conn.SetNoDelay(!l.cfg.TCPDelay); err != nil {
		l.logger.Debug("set tcp nodelay failed", "error", err)
	}
	if l.cfg.ReadBufferSize > 0 {
		_ = conn.SetReadBuffer(l.cfg.ReadBufferSize)
	}
	return conn, nil
}

func (l *netListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *netListener) Close() error {
	if !l.shutdown() {
		return nil
	}
	err := l.ln.Close()
	l.wait()
	return err
}
