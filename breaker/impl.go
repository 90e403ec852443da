package breaker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/xerrors"
)

// circuitBreaker 熔断器默认实现（内部使用，小写）。
//
// Execute 流程：旁路检查 → 容量门控 → 状态机准入 → 结果缓存 →
// 带超时的调用 → 结果归账（窗口 / 状态机 / 事件 / 指标）→ 降级。
type circuitBreaker struct {
	name     string
	cfg      *Config
	logger   clog.Logger
	fallback FallbackFunc

	notifier *notifier
	metrics  *breakerMetrics
	window   *rollingWindow
	gate     *gate
	machine  *stateMachine
	cache    *resultCache

	// createdAt 支撑 warm-up 宽限期判定：熔断器创建后的第一个完整
	// 统计窗口内不触发熔断。
	createdAt time.Time
	closed    atomic.Bool
}

func newBreaker(name string, cfg *Config, logger clog.Logger, opt *options) (Breaker, error) {
	metrics, err := newBreakerMetrics(opt.meter, name)
	if err != nil {
		return nil, err
	}

	b := &circuitBreaker{
		name:      name,
		cfg:       cfg,
		logger:    logger,
		fallback:  opt.fallback,
		notifier:  newNotifier(name, opt.listeners),
		metrics:   metrics,
		window:    newRollingWindow(cfg.RollingCountTimeout, cfg.RollingCountBuckets),
		gate:      newGate(cfg.Capacity),
		createdAt: time.Now(),
	}
	b.machine = newStateMachine(cfg.ResetTimeout, b.onTransition)

	if cfg.Cache {
		cache, err := newResultCache(cfg)
		if err != nil {
			return nil, err
		}
		b.cache = cache
	}

	return b, nil
}

// onTransition 状态机转换回调，在状态机锁外被调用。
func (b *circuitBreaker) onTransition(tr transition) {
	b.logger.Info("circuit breaker state changed",
		clog.String("from", tr.from.String()),
		clog.String("to", tr.to.String()))
	b.notifier.stateChange(tr.to)
	b.metrics.recordStateChange(context.Background(), tr)
}

func (b *circuitBreaker) Name() string {
	return b.name
}

func (b *circuitBreaker) State() State {
	return b.machine.currentState()
}

func (b *circuitBreaker) Snapshot() Snapshot {
	return buildSnapshot(b.name, b.machine.currentState(), b.window.totals(), b.gate.pending())
}

func (b *circuitBreaker) Execute(ctx context.Context, op Operation, args ...any) (any, error) {
	return b.execute(ctx, op, args, b.invoke)
}

// executeInline 与 Execute 走同一条归账管线，但在调用方 goroutine 内
// 同步执行操作，不做超时竞速。供操作无法脱离调用方 goroutine 的场景
// 使用（如 HTTP 中间件里的处理器链：处理器必须在响应写回前完成）。
func (b *circuitBreaker) executeInline(ctx context.Context, op Operation, args []any) (any, error) {
	return b.execute(ctx, op, args, func(ctx context.Context, op Operation, args []any) (any, error) {
		return op(ctx, args...)
	})
}

func (b *circuitBreaker) execute(ctx context.Context, op Operation, args []any,
	invoke func(context.Context, Operation, []any) (any, error)) (any, error) {
	if op == nil {
		return nil, ErrOperationNil
	}

	b.notifier.fire()
	b.metrics.recordFire(ctx)

	// 旁路模式：不统计、不门控，直接透传
	if b.cfg.Disabled {
		return op(ctx, args...)
	}

	if b.closed.Load() {
		b.window.record(outcomeReject, 0)
		b.notifier.reject()
		b.metrics.recordReject(ctx, "shutdown")
		return b.absorb(ctx, ErrShutdown, args)
	}

	// 容量门控独立于熔断状态：半开探测同样占用容量。
	// 容量拒绝只触发 semaphoreLocked 事件，与熔断态的 reject 区分。
	if !b.gate.tryAcquire() {
		b.window.record(outcomeReject, 0)
		b.notifier.semaphoreLocked()
		b.metrics.recordReject(ctx, "semaphore")
		return b.absorb(ctx, ErrSemaphoreLocked, args)
	}
	defer b.gate.release()

	allowed, probe := b.machine.admit()
	if !allowed {
		b.window.record(outcomeReject, 0)
		b.notifier.reject()
		b.metrics.recordReject(ctx, "open")
		return b.absorb(ctx, ErrOpenState, args)
	}

	if b.cache != nil {
		if value, ok := b.cache.get(args); ok {
			b.notifier.cacheHit()
			b.metrics.recordCacheHit(ctx)
			// 缓存命中没有探测到后端，归还探测槽位
			b.machine.releaseProbe(probe)
			return value, nil
		}
		b.notifier.cacheMiss()
		b.metrics.recordCacheMiss(ctx)
	}

	start := time.Now()
	result, err := invoke(ctx, op, args)
	latency := time.Since(start)

	switch {
	case err == nil:
		b.window.record(outcomeSuccess, latency)
		b.machine.onSuccess(probe)
		b.notifier.success(latency)
		b.metrics.recordSuccess(ctx, latency)
		if b.cache != nil {
			b.cache.set(args, result)
		}
		return result, nil

	case xerrors.Is(err, ErrTimeout):
		b.window.record(outcomeTimeout, latency)
		b.machine.onFailure(probe)
		b.notifier.timeout(latency)
		b.metrics.recordTimeout(ctx, latency)
		b.maybeTrip()
		return b.absorb(ctx, err, args)

	case b.cfg.ErrorFilter != nil && b.cfg.ErrorFilter(err):
		// 被忽略的失败不计入阈值，也不决议探测
		b.window.record(outcomeIgnore, latency)
		b.machine.releaseProbe(probe)
		return b.absorb(ctx, err, args)

	default:
		b.window.record(outcomeFailure, latency)
		b.machine.onFailure(probe)
		b.notifier.failure(err, latency)
		b.metrics.recordFailure(ctx, latency)
		b.maybeTrip()
		return b.absorb(ctx, err, args)
	}
}

// invoke 在配置超时内执行操作。
// 超时后调用方立即拿到 ErrTimeout，操作 goroutine 通过派生 context
// 收到取消信号后自行退出，其迟到的结果被丢弃。
func (b *circuitBreaker) invoke(ctx context.Context, op Operation, args []any) (any, error) {
	tctx, cancel := ctx, func() {}
	if b.cfg.Timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
	}
	defer cancel()

	type callResult struct {
		value any
		err   error
	}
	done := make(chan callResult, 1)

	go func() {
		value, err := op(tctx, args...)
		done <- callResult{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-tctx.Done():
		// 调用方主动取消按普通失败归账，只有本地超时才算 timeout
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, xerrors.Wrapf(ErrTimeout, "operation exceeded %v", b.cfg.Timeout)
	}
}

// maybeTrip 在 Closed 状态下检查窗口失败率是否达到熔断阈值。
func (b *circuitBreaker) maybeTrip() {
	if b.machine.currentState() != StateClosed {
		return
	}

	totals := b.window.totals()
	if totals.completed() < int64(b.cfg.VolumeThreshold) {
		return
	}
	// warm-up 宽限期内只记账不熔断
	if b.cfg.AllowWarmUp && time.Since(b.createdAt) < b.cfg.RollingCountTimeout {
		return
	}
	if totals.errorRate() < b.cfg.ErrorThresholdPercentage {
		return
	}

	b.logger.Warn("error threshold exceeded, tripping circuit breaker",
		clog.Float64("error_rate", totals.errorRate()),
		clog.Int64("window_total", totals.completed()))
	b.machine.trip()
}

// absorb 统一的失败吸收出口：触发降级事件，有降级函数则执行降级，
// 否则返回包装了原始原因的 ErrServiceUnavailable。
func (b *circuitBreaker) absorb(ctx context.Context, cause error, args []any) (any, error) {
	b.notifier.fallback(cause)
	b.metrics.recordFallback(ctx)

	if b.fallback != nil {
		return b.fallback(ctx, cause, args...)
	}
	return nil, xerrors.Join(ErrServiceUnavailable, cause)
}

func (b *circuitBreaker) Shutdown() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.machine.shutdown()
	if b.cache != nil {
		b.cache.close()
	}
	b.notifier.shutdown()
	b.logger.Info("circuit breaker shut down")
}
