package sentry

import (
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *eventSink) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *eventSink) last(t *testing.T) *sentry.Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.events)
	return s.events[len(s.events)-1]
}

func newTestClient(t *testing.T) (*Client, *eventSink) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = "https://public@example.com/1"
	cfg.Tags = map[string]string{"service": "echo"}

	sink := &eventSink{}
	c, err := New(cfg, WithBeforeSend(sink.beforeSend))
	require.NoError(t, err)
	return c, sink
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
	assert.ErrorIs(t, DefaultConfig().Validate(), ErrInvalidDSN)

	cfg := DefaultConfig()
	cfg.DSN = "https://public@example.com/1"
	cfg.SampleRate = 2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.SampleRate = 0.5
	assert.NoError(t, cfg.Validate())
}

func TestCaptureException(t *testing.T) {
	c, sink := newTestClient(t)

	c.CaptureException(errors.New("loop terminated"))

	event := sink.last(t)
	require.NotEmpty(t, event.Exception)
	assert.Equal(t, "loop terminated", event.Exception[len(event.Exception)-1].Value)
	assert.Equal(t, "echo", event.Tags["service"])

	// BeforeSend 丢弃了事件
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.EventsTotal)
	assert.Equal(t, uint64(1), stats.EventsDropped)

	assert.Nil(t, c.CaptureException(nil))
	assert.Equal(t, uint64(1), c.Stats().EventsTotal)
}

func TestCaptureMessageLevel(t *testing.T) {
	c, sink := newTestClient(t)

	c.CaptureMessage("tcp server loop terminated", LevelFatal)

	event := sink.last(t)
	assert.Equal(t, "tcp server loop terminated", event.Message)
	assert.Equal(t, sentry.LevelFatal, event.Level)
}

func TestRecoverWithContext(t *testing.T) {
	c, sink := newTestClient(t)

	func() {
		defer func() {
			c.RecoverWithContext(recover())
		}()
		panic("boom")
	}()

	event := sink.last(t)
	assert.Equal(t, sentry.LevelFatal, event.Level)
}

func TestLogHookAddsBreadcrumbs(t *testing.T) {
	c, sink := newTestClient(t)

	l, err := logger.New(logger.DefaultConfig(),
		logger.WithWriter(io.Discard),
		logger.WithHooks(logger.MinLevelHook(zapcore.WarnLevel, LogHook(c))),
	)
	require.NoError(t, err)

	l.Info("ignored")
	l.Named("tcp").Warn("accept failed", "code", 24)
	c.CaptureMessage("fatal", LevelError)

	event := sink.last(t)
	require.Len(t, event.Breadcrumbs, 1)
	crumb := event.Breadcrumbs[0]
	assert.Equal(t, "accept failed", crumb.Message)
	assert.Equal(t, "tcp", crumb.Category)
	assert.Equal(t, sentry.LevelWarning, crumb.Level)
	assert.EqualValues(t, 24, crumb.Data["code"])
}

func TestClose(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.Nil(t, c.CaptureException(errors.New("late")))
}
