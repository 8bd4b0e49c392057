package app

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeServer struct {
	name     string
	rec      *recorder
	startErr error
	stopWait time.Duration
}

func (s *fakeServer) Start() error {
	s.rec.add("start " + s.name)
	return s.startErr
}

func (s *fakeServer) Stop() error {
	time.Sleep(s.stopWait)
	s.rec.add("stop " + s.name)
	return nil
}

func newTestApp(opts ...Option) *BaseApp {
	return NewBaseApp(append([]Option{WithLogger(logger.NewNoop()), WithName("test")}, opts...)...)
}

func TestRunAndShutdown(t *testing.T) {
	rec := &recorder{}
	a := newTestApp()
	a.AppendServer(&fakeServer{name: "tcp", rec: rec})
	a.AppendCloser(CloserFunc(func() error { rec.add("close first"); return nil }))
	a.AppendCloser(CloserFunc(func() error { rec.add("close second"); return nil }))

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, func() bool { return len(rec.list()) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, a.Run(), ErrAppAlreadyRunning)

	require.NoError(t, a.Shutdown())
	require.NoError(t, <-done)

	assert.Equal(t, []string{"start tcp", "stop tcp", "close second", "close first"}, rec.list())
	assert.Error(t, a.Context().Err())

	// 第二次调用无效
	assert.NoError(t, a.Shutdown())
}

func TestShutdownTimeout(t *testing.T) {
	rec := &recorder{}
	a := newTestApp(WithStopTimeout(20 * time.Millisecond))
	a.AppendServer(&fakeServer{name: "slow", rec: rec, stopWait: 500 * time.Millisecond})

	closed := false
	a.AppendCloser(CloserFunc(func() error { closed = true; return nil }))

	err := a.Shutdown()
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.True(t, closed)
}

func TestShutdownCombinesCloserErrors(t *testing.T) {
	a := newTestApp()
	boom := errors.New("boom")
	a.AppendCloser(CloserFunc(func() error { return boom }))

	assert.True(t, errors.Is(a.Shutdown(), boom))
}

func TestRunStartFailureStopsServers(t *testing.T) {
	rec := &recorder{}
	bind := errors.New("address in use")
	a := newTestApp()
	a.AppendServer(
		&fakeServer{name: "metrics", rec: rec},
		&fakeServer{name: "tcp", rec: rec, startErr: bind},
	)

	err := a.Run()
	assert.True(t, errors.Is(err, bind))

	calls := rec.list()
	assert.Equal(t, []string{"start metrics", "start tcp"}, calls[:2])
	assert.ElementsMatch(t, []string{"stop metrics", "stop tcp"}, calls[2:])
}

func TestInitAppAndMapCloser(t *testing.T) {
	rec := &recorder{}
	a := newTestApp()

	res := &fakeResource{rec: rec}
	app := InitApp(a, Components{
		Servers: []Server{&fakeServer{name: "tcp", rec: rec}},
		Closers: []Closer{MapCloser(res)},
	})
	require.NoError(t, app.Shutdown())
	assert.Equal(t, []string{"stop tcp", "close resource"}, rec.list())
}

type fakeResource struct{ rec *recorder }

func (r *fakeResource) Close() error {
	r.rec.add("close resource")
	return nil
}

func TestNamedLoggers(t *testing.T) {
	a := newTestApp()
	assert.NotNil(t, a.Logger("net"))
	_, ok := a.named.get("net")
	assert.False(t, ok)

	noop := logger.NewNoop()
	a.RegisterLogger("net", noop)
	assert.Same(t, noop, a.Logger("net"))

	// 启用文件输出但没有路径，整批不生效
	var n namedLoggers
	err := n.build(map[string]*logger.Config{"bad": {EnableFile: true}})
	assert.ErrorContains(t, err, `logger "bad"`)
	_, ok = n.get("bad")
	assert.False(t, ok)
}

func TestVersionInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.AppName)
	assert.Contains(t, info.String(), info.Version)
	assert.Contains(t, info.Platform, "/")
	assert.Len(t, info.Fields(), 12)
}
