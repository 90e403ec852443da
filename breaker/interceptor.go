package breaker

import (
	"context"

	"google.golang.org/grpc"
)

// InterceptorOption 拦截器选项函数类型
type InterceptorOption func(*interceptorConfig)

// interceptorConfig 拦截器内部配置（非导出）
type interceptorConfig struct {
	keyFunc KeyFunc
}

func buildInterceptorConfig(opts []InterceptorOption) *interceptorConfig {
	cfg := &interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithKeyFunc 设置熔断器名称派生函数
func WithKeyFunc(fn KeyFunc) InterceptorOption {
	return func(cfg *interceptorConfig) {
		cfg.keyFunc = fn
	}
}

// WithServiceLevelKey 使用服务级粒度（默认）
func WithServiceLevelKey() InterceptorOption {
	return WithKeyFunc(ServiceLevelKey())
}

// WithMethodLevelKey 使用方法级粒度
func WithMethodLevelKey() InterceptorOption {
	return WithKeyFunc(MethodLevelKey())
}

// WithBackendLevelKey 使用后端级粒度
// 推荐用于负载均衡场景，实现后端实例级别的熔断隔离
func WithBackendLevelKey() InterceptorOption {
	return WithKeyFunc(BackendLevelKey())
}

// WithCompositeKey 使用组合粒度（服务 + 后端）
func WithCompositeKey() InterceptorOption {
	return WithKeyFunc(CompositeKey(ServiceLevelKey(), BackendLevelKey()))
}

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器，
// 每个派生名称对应 Group 中一个独立的熔断器。
//
// 使用示例:
//
//	group, _ := breaker.NewGroup(cfg, breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(group.UnaryClientInterceptor()),
//	)
func (g *Group) UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := buildInterceptorConfig(opts)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		name := cfg.keyFunc(ctx, method, cc)

		_, err := g.Execute(ctx, name, func(ctx context.Context, _ ...any) (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器。
// 熔断保护作用于流的建立；流建立后的消息收发不经过熔断器。
func (g *Group) StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor {
	cfg := buildInterceptorConfig(opts)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		name := cfg.keyFunc(ctx, method, cc)

		result, err := g.Execute(ctx, name, func(ctx context.Context, _ ...any) (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		})
		if err != nil {
			return nil, err
		}
		stream, ok := result.(grpc.ClientStream)
		if !ok {
			// 降级函数返回了非流结果，按失败处理
			return nil, ErrServiceUnavailable
		}
		return stream, nil
	}
}
