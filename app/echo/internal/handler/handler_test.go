package handler

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	gosentry "github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/prometheus"
	"github.com/lk2023060901/netcore/pkg/sentry"
	"github.com/lk2023060901/netcore/pkg/tcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

func newPrometheus(t *testing.T) *prometheus.Client {
	t.Helper()
	cfg := prometheus.DefaultConfig()
	cfg.HTTPServer.Enabled = false
	cfg.EnableGoCollector = false
	cfg.EnableProcessCollector = false
	c, err := prometheus.New(cfg)
	require.NoError(t, err)
	return c
}

func startServer(t *testing.T, echo *Echo) *tcp.Server {
	t.Helper()
	srv, err := tcp.NewServerWithAddress("127.0.0.1", 0,
		tcp.WithSessionHandler(echo),
		tcp.WithLogger(logger.NewNoop()),
	)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func dial(t *testing.T, srv *tcp.Server) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), waitTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(waitTimeout)))
	return conn
}

func readN(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestEchoRepliesToSender(t *testing.T) {
	prom := newPrometheus(t)
	echo, err := NewEcho(&Config{}, logger.NewNoop(), prom)
	require.NoError(t, err)

	srv := startServer(t, echo)
	conn := dial(t, srv)

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, "ping", readN(t, conn, 4))

	counter, ok := prom.GetCounter("echo_messages_total")
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(counter.WithLabelValues(modeEcho)) == 1
	}, waitTimeout, 10*time.Millisecond)
}

func TestEchoBroadcast(t *testing.T) {
	echo, err := NewEcho(&Config{Broadcast: true}, logger.NewNoop(), nil)
	require.NoError(t, err)

	srv := startServer(t, echo)
	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return srv.SessionCount() == 2 }, waitTimeout, 10*time.Millisecond)

	_, err = a.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, "hello", readN(t, a, 5))
	assert.Equal(t, "hello", readN(t, b, 5))
}

func TestNewEchoDuplicateMetrics(t *testing.T) {
	prom := newPrometheus(t)
	_, err := NewEcho(nil, logger.NewNoop(), prom)
	require.NoError(t, err)

	_, err = NewEcho(nil, logger.NewNoop(), prom)
	assert.ErrorIs(t, err, prometheus.ErrMetricExists)
}

type fakeSession struct{ id uuid.UUID }

func (s fakeSession) ID() uuid.UUID    { return s.id }
func (s fakeSession) Connect()         {}
func (s fakeSession) Disconnect() bool { return true }

func TestLifecycleOnFatal(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*gosentry.Event
	)
	sc, err := sentry.New(&sentry.Config{DSN: "https://public@example.com/1", SampleRate: 1},
		sentry.WithBeforeSend(func(e *gosentry.Event, _ *gosentry.EventHint) *gosentry.Event {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
			return nil
		}))
	require.NoError(t, err)

	shutdown := make(chan struct{})
	h := NewLifecycle(logger.NewNoop(), sc, func() error {
		close(shutdown)
		return nil
	})

	// 非 TCPSession 也能记录
	h.OnConnected(fakeSession{id: uuid.New()})
	h.OnDisconnected(fakeSession{id: uuid.New()})
	h.OnError(24, "accept", "too many open files")

	h.OnFatal("tcp server loop terminated: boom")

	select {
	case <-shutdown:
	case <-time.After(waitTimeout):
		t.Fatal("shutdown not requested")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, gosentry.LevelFatal, events[0].Level)
	assert.Equal(t, "tcp server loop terminated: boom", events[0].Message)
}

func TestLifecycleWithoutSentry(t *testing.T) {
	h := NewLifecycle(logger.NewNoop(), nil, nil)
	assert.NotPanics(t, func() { h.OnFatal("boom") })
}
