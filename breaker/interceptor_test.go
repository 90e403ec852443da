package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// staticKey 固定名称的 KeyFunc，避免测试依赖 cc.Target()
func staticKey(name string) KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return name
	}
}

func TestUnaryClientInterceptor_Success(t *testing.T) {
	group := newTestGroup(t)
	interceptor := group.UnaryClientInterceptor(WithKeyFunc(staticKey("unary-ok")))

	var invoked bool
	err := interceptor(context.Background(), "/svc/Method", nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			invoked = true
			return nil
		})
	require.NoError(t, err)
	assert.True(t, invoked)
}

func TestUnaryClientInterceptor_OpensOnFailures(t *testing.T) {
	group := newTestGroup(t)
	interceptor := group.UnaryClientInterceptor(WithKeyFunc(staticKey("unary-fail")))

	failing := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return errBoom
	}
	for i := 0; i < 4; i++ {
		err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, failing)
		require.Error(t, err)
	}

	state, err := group.State("unary-fail")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)

	// 熔断打开后 invoker 不再被调用
	var invoked bool
	err = interceptor(context.Background(), "/svc/Method", nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			invoked = true
			return nil
		})
	require.Error(t, err)
	assert.False(t, invoked)
	assert.ErrorIs(t, err, ErrOpenState)
}

func TestStreamClientInterceptor_PropagatesStreamError(t *testing.T) {
	group := newTestGroup(t)
	interceptor := group.StreamClientInterceptor(WithKeyFunc(staticKey("stream-fail")))

	stream, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/svc/Stream",
		func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			return nil, errBoom
		})
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.ErrorIs(t, err, errBoom)
}

func TestMethodLevelKey_IsolatesMethods(t *testing.T) {
	group := newTestGroup(t)
	interceptor := group.UnaryClientInterceptor(WithMethodLevelKey())

	failing := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return errBoom
	}
	for i := 0; i < 4; i++ {
		_ = interceptor(context.Background(), "/svc/Broken", nil, nil, nil, failing)
	}

	stateBroken, err := group.State("/svc/Broken")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, stateBroken)

	// 其他方法不受影响
	err = interceptor(context.Background(), "/svc/Healthy", nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return nil
		})
	assert.NoError(t, err)
}

func TestCompositeKey_JoinsParts(t *testing.T) {
	fn := CompositeKey(staticKey("svc"), staticKey("10.0.0.1:9001"))
	key := fn(context.Background(), "/svc/Method", nil)
	assert.Equal(t, "svc@10.0.0.1:9001", key)
}

func TestStreamClientInterceptor_Timeout(t *testing.T) {
	group, err := NewGroup(&Config{
		Timeout:      50 * time.Millisecond,
		ResetTimeout: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(group.Shutdown)

	interceptor := group.StreamClientInterceptor(WithKeyFunc(staticKey("stream-slow")))
	_, err = interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/svc/Stream",
		func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			select {
			case <-time.After(time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}
