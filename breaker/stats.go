package breaker

import "time"

// Snapshot 熔断器在某一时刻的聚合统计快照，
// 覆盖当前滚动窗口内的全部观测。
type Snapshot struct {
	// Name 熔断器名称
	Name string `json:"name"`
	// State 采样时刻的熔断状态
	State State `json:"state"`
	// Timestamp 采样时刻
	Timestamp time.Time `json:"timestamp"`

	// 计数统计
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Timeouts  int64 `json:"timeouts"`
	Rejects   int64 `json:"rejects"`
	Ignores   int64 `json:"ignores"`
	// Total 窗口内完成的调用数（不含拒绝）
	Total int64 `json:"total"`

	// ErrorRate 失败率百分比 [0,100]
	ErrorRate float64 `json:"error_rate"`

	// 延迟统计
	MeanLatency time.Duration `json:"mean_latency"`
	P50Latency  time.Duration `json:"p50_latency"`
	P90Latency  time.Duration `json:"p90_latency"`
	P95Latency  time.Duration `json:"p95_latency"`
	P99Latency  time.Duration `json:"p99_latency"`
	MaxLatency  time.Duration `json:"max_latency"`

	// InFlight 采样时刻的在途调用数
	InFlight int64 `json:"in_flight"`
}

// buildSnapshot 由窗口聚合构造快照（内部使用）。
func buildSnapshot(name string, state State, t windowTotals, inFlight int64) Snapshot {
	s := Snapshot{
		Name:      name,
		State:     state,
		Timestamp: time.Now(),
		Successes: t.successes,
		Failures:  t.failures,
		Timeouts:  t.timeouts,
		Rejects:   t.rejects,
		Ignores:   t.ignores,
		Total:     t.completed(),
		ErrorRate: t.errorRate(),
		InFlight:  inFlight,
	}

	if len(t.latencies) == 0 {
		return s
	}

	sorted := sortLatencies(t.latencies)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	s.MeanLatency = sum / time.Duration(len(sorted))
	s.P50Latency = percentile(sorted, 50)
	s.P90Latency = percentile(sorted, 90)
	s.P95Latency = percentile(sorted, 95)
	s.P99Latency = percentile(sorted, 99)
	s.MaxLatency = sorted[len(sorted)-1]
	return s
}
