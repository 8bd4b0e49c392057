package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/logger"
	"github.com/lk2023060901/netcore/pkg/reactor"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// AcceptHandler accept 完成回调，在 reactor 的派发协程上执行且只执行一次。
// err 不为 nil 时 t 为 nil。
type AcceptHandler func(t Transport, err error)

// Listener 已绑定的监听套接字
type Listener interface {
	// AcceptOnce 发起一次异步 accept，上一次尚未完成时返回 ErrAcceptPending
	AcceptOnce(h AcceptHandler) error
	// Cancel 中断正在进行的 accept 并等待其结束，被中断的 accept 不会投递完成回调
	Cancel()
	Addr() net.Addr
	Close() error
}

// acceptFunc 阻塞地取出一个连接，ctx 取消时必须返回
type acceptFunc func(ctx context.Context) (Transport, error)

// acceptor 两种监听实现共用的 accept 调度：
// 阻塞调用在协程池中执行，结果投递回 reactor。
type acceptor struct {
	accept    acceptFunc
	interrupt func()
	resume    func()

	reactor reactor.Reactor
	pool    *ants.Pool
	limiter *rate.Limiter
	logger  logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	pending atomic.Bool
	closed  atomic.Bool

	// 只在持有 pending 的 accept 协程中访问
	backoff time.Duration
}

func newAcceptor(cfg *ServerConfig, r reactor.Reactor, pool *ants.Pool, l logger.Logger) *acceptor {
	a := &acceptor{
		reactor:   r,
		pool:      pool,
		logger:    l,
		interrupt: func() {},
		resume:    func() {},
	}
	if cfg.AcceptRate > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst)
	}
	a.ctx, a.stop = context.WithCancel(context.Background())
	return a
}

func (a *acceptor) AcceptOnce(h AcceptHandler) error {
	if a.closed.Load() {
		return ErrListenerClosed
	}
	if !a.pending.CompareAndSwap(false, true) {
		return ErrAcceptPending
	}

	a.mu.Lock()
	ctx := a.ctx
	a.wg.Add(1)
	a.mu.Unlock()

	if err := a.pool.Submit(func() {
		defer a.wg.Done()
		a.run(ctx, h)
	}); err != nil {
		a.wg.Done()
		a.pending.Store(false)
		return errors.Mark(errors.Wrap(err, "submit accept"), ErrAccept)
	}
	return nil
}

func (a *acceptor) run(ctx context.Context, h AcceptHandler) {
	t, err := a.acceptOne(ctx)

	// 被 Cancel 中断的 accept 直接丢弃
	if ctx.Err() != nil {
		if t != nil {
			_ = t.Close()
		}
		a.pending.Store(false)
		return
	}

	if err != nil {
		err = errors.Mark(errors.Wrap(err, "accept"), ErrAccept)
	}

	_ = a.reactor.Post(func() error {
		a.pending.Store(false)
		h(t, err)
		return nil
	}, func(error) {
		a.pending.Store(false)
		if t != nil {
			_ = t.Close()
		}
	})
}

func (a *acceptor) acceptOne(ctx context.Context) (Transport, error) {
	if a.backoff > 0 {
		timer := time.NewTimer(a.backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	t, err := a.accept(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.backoff = nextBackoff(a.backoff)
			a.logger.Debug("accept failed", "error", err, "backoff", a.backoff)
		}
		return nil, err
	}
	a.backoff = 0
	return t, nil
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}

func (a *acceptor) Cancel() {
	a.mu.Lock()
	a.stop()
	a.interrupt()
	a.mu.Unlock()

	a.wg.Wait()
	a.backoff = 0

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return
	}
	a.ctx, a.stop = context.WithCancel(context.Background())
	a.resume()
}

// shutdown 标记关闭并等待 accept 协程退出，由具体实现的 Close 调用
func (a *acceptor) shutdown() bool {
	if !a.closed.CompareAndSwap(false, true) {
		return false
	}
	a.mu.Lock()
	a.stop()
	a.interrupt()
	a.mu.Unlock()
	return true
}

func (a *acceptor) wait() {
	a.wg.Wait()
}
