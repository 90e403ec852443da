package breaker

import (
	"sort"
	"sync"
	"time"
)

// outcome 单次调用的结果分类（内部使用）。
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
	outcomeReject
	outcomeIgnore
)

// rollingBucket 一个固定时长的时间片累加器。
type rollingBucket struct {
	start     time.Time
	successes int64
	failures  int64
	timeouts  int64
	rejects   int64
	ignores   int64
	latencies []time.Duration
}

// rollingWindow 固定桶数的环形滚动窗口。
//
// 桶随真实时间前进而轮转：每次读写都会先根据经过的墙钟时间
// 推进环形游标，超出窗口时长的旧桶被整体丢弃（清空重建），
// 保证聚合始终只覆盖最近 window 时长内的观测，长时间空闲后
// 不会残留陈旧数据。
type rollingWindow struct {
	mu         sync.Mutex
	buckets    []rollingBucket
	bucketSize time.Duration
	window     time.Duration
	current    int
}

// windowTotals 窗口内聚合计数与延迟样本（内部使用）。
type windowTotals struct {
	successes int64
	failures  int64
	timeouts  int64
	rejects   int64
	ignores   int64
	latencies []time.Duration
}

// completed 窗口内完成的调用数：成功、失败、超时、被忽略的失败。
// 被拒绝的调用从未真正执行，不计入分母。
func (t windowTotals) completed() int64 {
	return t.successes + t.failures + t.timeouts + t.ignores
}

// errorRate 失败率百分比 [0,100]。没有样本时返回 0 而非 NaN，
// 避免空闲熔断器被误判打开。
func (t windowTotals) errorRate() float64 {
	total := t.completed()
	if total == 0 {
		return 0
	}
	return float64(t.failures+t.timeouts) / float64(total) * 100
}

func newRollingWindow(window time.Duration, buckets int) *rollingWindow {
	now := time.Now()
	w := &rollingWindow{
		buckets:    make([]rollingBucket, buckets),
		bucketSize: window / time.Duration(buckets),
		window:     window,
	}
	for i := range w.buckets {
		w.buckets[i].start = now
	}
	return w
}

// record 将一次观测写入当前桶，写入前按真实时间轮转。
func (w *rollingWindow) record(o outcome, latency time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate(time.Now())
	b := &w.buckets[w.current]
	switch o {
	case outcomeSuccess:
		b.successes++
	case outcomeFailure:
		b.failures++
	case outcomeTimeout:
		b.timeouts++
	case outcomeReject:
		b.rejects++
	case outcomeIgnore:
		b.ignores++
	}
	// 拒绝没有延迟样本：调用未被执行
	if o != outcomeReject {
		b.latencies = append(b.latencies, latency)
	}
}

// totals 聚合当前窗口内的全部观测，聚合前按真实时间轮转。
func (w *rollingWindow) totals() windowTotals {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate(time.Now())

	var t windowTotals
	cutoff := time.Now().Add(-w.window)
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.start.Before(cutoff) {
			continue
		}
		t.successes += b.successes
		t.failures += b.failures
		t.timeouts += b.timeouts
		t.rejects += b.rejects
		t.ignores += b.ignores
		t.latencies = append(t.latencies, b.latencies...)
	}
	return t
}

// rotate 根据经过的时间推进环形游标，必须持有 mu 调用。
func (w *rollingWindow) rotate(now time.Time) {
	elapsed := now.Sub(w.buckets[w.current].start)
	if elapsed < w.bucketSize {
		return
	}

	steps := int(elapsed / w.bucketSize)
	if steps >= len(w.buckets) {
		// 空闲时间超过整个窗口，所有数据都已过期
		w.reset(now)
		return
	}

	for i := 0; i < steps; i++ {
		w.current = (w.current + 1) % len(w.buckets)
		w.buckets[w.current] = rollingBucket{start: now}
	}
}

// reset 清空全部桶，必须持有 mu 调用。
func (w *rollingWindow) reset(now time.Time) {
	for i := range w.buckets {
		w.buckets[i] = rollingBucket{start: now}
	}
	w.current = 0
}

// percentile 对已排序样本做线性插值取分位，p 取值 [0,100]。
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + time.Duration(frac*float64(sorted[lo+1]-sorted[lo]))
}

// sortLatencies 原地排序延迟样本并返回。
func sortLatencies(samples []time.Duration) []time.Duration {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return samples
}
