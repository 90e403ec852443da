package breaker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ceyewan/fuse/xerrors"
)

// Metrics 指标常量定义
const (
	// MetricFiresTotal 进入熔断器的调用总数 (Counter)
	MetricFiresTotal = "breaker_fires_total"

	// MetricSuccessTotal 成功请求数 (Counter)
	MetricSuccessTotal = "breaker_success_total"

	// MetricFailuresTotal 失败请求数 (Counter)
	MetricFailuresTotal = "breaker_failures_total"

	// MetricTimeoutsTotal 超时请求数 (Counter)
	MetricTimeoutsTotal = "breaker_timeouts_total"

	// MetricRejectsTotal 被拒绝的请求数，含熔断拒绝与容量拒绝 (Counter)
	MetricRejectsTotal = "breaker_rejects_total"

	// MetricFallbacksTotal 降级执行次数 (Counter)
	MetricFallbacksTotal = "breaker_fallbacks_total"

	// MetricCacheHitsTotal 结果缓存命中数 (Counter)
	MetricCacheHitsTotal = "breaker_cache_hits_total"

	// MetricCacheMissesTotal 结果缓存未命中数 (Counter)
	MetricCacheMissesTotal = "breaker_cache_misses_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	// MetricCallDuration 调用耗时 (Histogram, 秒)
	MetricCallDuration = "breaker_call_duration_seconds"

	// LabelName 熔断器名称标签
	LabelName = "name"

	// LabelFromState 源状态标签
	LabelFromState = "from_state"

	// LabelToState 目标状态标签
	LabelToState = "to_state"

	// LabelReason 拒绝原因标签 (open/semaphore/shutdown)
	LabelReason = "reason"
)

// breakerMetrics 持有一个熔断器的全部指标仪器（内部使用）。
// nil 接收者是合法的：未注入 Meter 时所有记录都是空操作。
type breakerMetrics struct {
	name string

	fires       metric.Int64Counter
	successes   metric.Int64Counter
	failures    metric.Int64Counter
	timeouts    metric.Int64Counter
	rejects     metric.Int64Counter
	fallbacks   metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	stateChange metric.Int64Counter
	duration    metric.Float64Histogram
}

func newBreakerMetrics(meter metric.Meter, name string) (*breakerMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &breakerMetrics{name: name}
	var err error

	collect := func(metricName, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(metricName, metric.WithDescription(desc))
		return c
	}

	m.fires = collect(MetricFiresTotal, "Calls entering the breaker")
	m.successes = collect(MetricSuccessTotal, "Successful calls")
	m.failures = collect(MetricFailuresTotal, "Failed calls")
	m.timeouts = collect(MetricTimeoutsTotal, "Timed out calls")
	m.rejects = collect(MetricRejectsTotal, "Rejected calls")
	m.fallbacks = collect(MetricFallbacksTotal, "Fallback executions")
	m.cacheHits = collect(MetricCacheHitsTotal, "Result cache hits")
	m.cacheMisses = collect(MetricCacheMissesTotal, "Result cache misses")
	m.stateChange = collect(MetricStateChanges, "Circuit breaker state changes")
	if err != nil {
		return nil, xerrors.Wrap(err, "breaker: failed to create metrics")
	}

	m.duration, err = meter.Float64Histogram(MetricCallDuration,
		metric.WithDescription("Call duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, xerrors.Wrap(err, "breaker: failed to create metrics")
	}

	return m, nil
}

func (m *breakerMetrics) nameAttr() metric.AddOption {
	return metric.WithAttributes(attribute.String(LabelName, m.name))
}

func (m *breakerMetrics) recordFire(ctx context.Context) {
	if m == nil {
		return
	}
	m.fires.Add(ctx, 1, m.nameAttr())
}

func (m *breakerMetrics) recordSuccess(ctx context.Context, latency time.Duration) {
	if m == nil {
		return
	}
	m.successes.Add(ctx, 1, m.nameAttr())
	m.duration.Record(ctx, latency.Seconds(),
		metric.WithAttributes(attribute.String(LabelName, m.name)))
}

func (m *breakerMetrics) recordFailure(ctx context.Context, latency time.Duration) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, m.nameAttr())
	m.duration.Record(ctx, latency.Seconds(),
		metric.WithAttributes(attribute.String(LabelName, m.name)))
}

func (m *breakerMetrics) recordTimeout(ctx context.Context, latency time.Duration) {
	if m == nil {
		return
	}
	m.timeouts.Add(ctx, 1, m.nameAttr())
	m.duration.Record(ctx, latency.Seconds(),
		metric.WithAttributes(attribute.String(LabelName, m.name)))
}

func (m *breakerMetrics) recordReject(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejects.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelName, m.name),
		attribute.String(LabelReason, reason)))
}

func (m *breakerMetrics) recordFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, m.nameAttr())
}

func (m *breakerMetrics) recordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, m.nameAttr())
}

func (m *breakerMetrics) recordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, m.nameAttr())
}

func (m *breakerMetrics) recordStateChange(ctx context.Context, tr transition) {
	if m == nil {
		return
	}
	m.stateChange.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelName, m.name),
		attribute.String(LabelFromState, tr.from.String()),
		attribute.String(LabelToState, tr.to.String())))
}
