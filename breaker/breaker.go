// Package breaker 提供了进程内熔断器引擎，保护调用方不反复调用一个
// 正在失败或响应过慢的操作。
//
// breaker 是 fuse 的核心组件，它提供了：
// - 基于时间滚动窗口的失败率统计（含延迟百分位）
// - Closed / Open / HalfOpen 三态状态机与自动恢复探测
// - 并发容量门控（独立于熔断状态的在途调用上限）
// - 可选的成功结果缓存（按参数派生键，支持 TTL）
// - 灵活的降级策略（自定义降级逻辑或统一的 service unavailable 失败）
// - 生命周期事件通知与 OpenTelemetry 指标
// - 按名称管理多个熔断器实例的 Group 注册表
// - gRPC Unary/Stream Interceptor 与 Gin Middleware 无侵入集成
//
// ## 基本使用
//
//	brk, _ := breaker.New("payments", &breaker.Config{
//		Timeout:                  2 * time.Second,
//		ErrorThresholdPercentage: 50,
//		ResetTimeout:             30 * time.Second,
//		VolumeThreshold:          10,
//	}, breaker.WithLogger(logger))
//
//	result, err := brk.Execute(ctx, func(ctx context.Context, args ...any) (any, error) {
//		return client.Charge(ctx, args[0].(string))
//	}, orderID)
//
// ## 降级策略
//
//	brk, _ := breaker.New("payments", cfg,
//		breaker.WithFallback(func(ctx context.Context, err error, args ...any) (any, error) {
//			// 返回缓存数据或默认值
//			return cachedCharge(args), nil
//		}),
//	)
package breaker

import (
	"context"

	"github.com/ceyewan/fuse/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Operation 是受熔断保护的操作。
// args 为调用方透传的参数，同时用于派生结果缓存键。
type Operation func(ctx context.Context, args ...any) (any, error)

// FallbackFunc 降级函数类型。
// 当调用被拒绝、失败或超时时执行，err 为被降级的原始错误。
// 返回的错误会直接传播给调用方（终态失败）。
type FallbackFunc func(ctx context.Context, err error, args ...any) (any, error)

// ErrorFilter 判断一个错误是否应被排除在失败率统计之外。
// 返回 true 的错误会被记录为 ignored，不计入熔断阈值，
// 但仍然走降级路径返回给调用方。
type ErrorFilter func(err error) bool

// CacheKeyFunc 从调用参数派生结果缓存键。
type CacheKeyFunc func(args ...any) string

// Breaker 熔断器核心接口，一个实例对应一个命名操作。
type Breaker interface {
	// Execute 执行受熔断保护的操作。
	// 调用方要么得到一个解析后的结果，要么得到一个终态错误，
	// 绝不会观察到半完成状态。
	Execute(ctx context.Context, op Operation, args ...any) (any, error)

	// Name 返回熔断器名称。
	Name() string

	// State 返回当前熔断状态。
	State() State

	// Snapshot 返回当前统计窗口的聚合快照。
	Snapshot() Snapshot

	// Shutdown 关闭熔断器：停止接受新调用并释放定时器等资源。幂等。
	Shutdown()
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建熔断器实例。
//
// 参数:
//   - name: 熔断器名称，进程内唯一标识，不可为空
//   - cfg: 熔断器配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, Meter, Fallback, Listener)
//
// 使用示例:
//
//	brk, _ := breaker.New("payments", &breaker.Config{
//		Timeout:                  2 * time.Second,
//		ErrorThresholdPercentage: 50,
//		ResetTimeout:             30 * time.Second,
//	}, breaker.WithLogger(logger))
func New(name string, cfg *Config, opts ...Option) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}

	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.clone()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// 应用选项
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	// 派生 Logger（添加 name 字段）
	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.With(clog.String("name", name))

	logger.Info("creating circuit breaker",
		clog.Duration("timeout", cfg.Timeout),
		clog.Float64("error_threshold_pct", cfg.ErrorThresholdPercentage),
		clog.Duration("reset_timeout", cfg.ResetTimeout),
		clog.Duration("rolling_window", cfg.RollingCountTimeout),
		clog.Int("rolling_buckets", cfg.RollingCountBuckets),
		clog.Int("capacity", cfg.Capacity),
		clog.Int("volume_threshold", cfg.VolumeThreshold),
		clog.Bool("cache", cfg.Cache))

	return newBreaker(name, cfg, logger, &opt)
}
