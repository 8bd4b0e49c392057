package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listenerFixture struct {
	reactor  *reactor.Queue
	listener *netListener
	runDone  chan error
}

func newListenerFixture(t *testing.T, cfg *ServerConfig) *listenerFixture {
	t.Helper()

	pool, err := ants.NewPool(0)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	r := reactor.New()
	ep, err := ResolveAddress("127.0.0.1", 0)
	require.NoError(t, err)

	nl, err := newNetListener(ep, cfg, r, pool, logger.NewNoop())
	require.NoError(t, err)

	f := &listenerFixture{reactor: r, listener: nl, runDone: make(chan error, 1)}
	go func() { f.runDone <- r.Run() }()

	t.Cleanup(func() {
		r.Stop()
		<-f.runDone
		_ = nl.Close()
		_ = r.Close()
	})
	return f
}

func TestNetListenerSingleOutstandingAccept(t *testing.T) {
	f := newListenerFixture(t, DefaultServerConfig())

	accepted := make(chan Transport, 1)
	handler := func(tr Transport, err error) {
		assert.NoError(t, err)
		accepted <- tr
	}

	require.NoError(t, f.listener.AcceptOnce(handler))
	assert.ErrorIs(t, f.listener.AcceptOnce(handler), ErrAcceptPending)

	conn, err := net.DialTimeout("tcp", f.listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case tr := <-accepted:
		assert.Equal(t, conn.LocalAddr().String(), tr.RemoteAddr().String())
		_ = tr.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept completion not delivered")
	}

	// 完成回调执行后可以再次发起 accept
	require.NoError(t, f.listener.AcceptOnce(handler))
	f.listener.Cancel()
}

func TestNetListenerCancel(t *testing.T) {
	f := newListenerFixture(t, DefaultServerConfig())

	called := make(chan struct{}, 1)
	require.NoError(t, f.listener.AcceptOnce(func(Transport, error) { called <- struct{}{} }))

	cancelled := make(chan struct{})
	go func() {
		f.listener.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not interrupt accept")
	}

	// 被中断的 accept 不会投递完成回调
	select {
	case <-called:
		t.Fatal("cancelled accept delivered a completion")
	case <-time.After(50 * time.Millisecond):
	}

	// 取消后监听仍然可用
	accepted := make(chan Transport, 1)
	require.NoError(t, f.listener.AcceptOnce(func(tr Transport, err error) {
		assert.NoError(t, err)
		accepted <- tr
	}))
	conn, err := net.DialTimeout("tcp", f.listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case tr := <-accepted:
		_ = tr.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept after cancel not delivered")
	}
}

func TestNetListenerClose(t *testing.T) {
	f := newListenerFixture(t, DefaultServerConfig())

	require.NoError(t, f.listener.AcceptOnce(func(Transport, error) {}))
	require.NoError(t, f.listener.Close())
	assert.NoError(t, f.listener.Close())
	assert.ErrorIs(t, f.listener.AcceptOnce(func(Transport, error) {}), ErrListenerClosed)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, minAcceptBackoff, nextBackoff(0))
	assert.Equal(t, 2*minAcceptBackoff, nextBackoff(minAcceptBackoff))
	assert.Equal(t, maxAcceptBackoff, nextBackoff(maxAcceptBackoff))
	assert.Equal(t, maxAcceptBackoff, nextBackoff(700*time.Millisecond))
}
