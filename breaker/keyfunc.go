package breaker

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
)

// KeyFunc 从 gRPC 调用上下文派生熔断器名称，决定熔断隔离的粒度。
type KeyFunc func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string

// ServiceLevelKey 服务级粒度：同一目标服务共享一个熔断器。
// 返回示例: "etcd:///logic-service"
func ServiceLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return cc.Target()
	}
}

// MethodLevelKey 方法级粒度：每个 RPC 方法独立熔断。
// 返回示例: "/pkg.Service/Method"
func MethodLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return fullMethod
	}
}

// BackendLevelKey 后端级粒度：按真实后端地址隔离熔断，
// 适合负载均衡场景下隔离单个故障实例。
// 注意: Peer 信息要等连接建立后才可用，取不到时回退到服务名。
func BackendLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			if addr := p.Addr.String(); addr != "" {
				return addr
			}
		}
		return cc.Target()
	}
}

// CompositeKey 组合多个维度，使用 @ 分隔。
// 返回示例: "etcd:///logic-service@10.0.0.1:9001"
func CompositeKey(primary KeyFunc, secondary ...KeyFunc) KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		key := primary(ctx, fullMethod, cc)
		for _, fn := range secondary {
			key += "@" + fn(ctx, fullMethod, cc)
		}
		return key
	}
}
