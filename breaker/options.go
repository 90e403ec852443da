package breaker

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/ceyewan/fuse/clog"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger    clog.Logger
	meter     metric.Meter
	fallback  FallbackFunc
	listeners []Listener
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 注入 OpenTelemetry Meter，用于记录熔断器指标。
// 不设置时指标记录为空操作。
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithFallback 设置降级函数
// 调用被拒绝、失败或超时时会调用此函数进行降级处理。
//
// 使用示例:
//
//	brk, _ := breaker.New("payments", cfg,
//		breaker.WithFallback(func(ctx context.Context, err error, args ...any) (any, error) {
//			// 返回缓存数据或默认值
//			return defaultQuote, nil
//		}),
//	)
func WithFallback(fallback FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fallback
	}
}

// WithListener 注册生命周期事件监听器，可多次调用注册多个。
// 监听器只接收通知，绝不影响熔断控制流。
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}
