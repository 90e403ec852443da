package breaker

import "github.com/ceyewan/fuse/xerrors"

// 错误定义
var (
	// ErrNameEmpty 熔断器名称为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")

	// ErrOperationNil 被保护操作为空
	ErrOperationNil = xerrors.New("breaker: operation is nil")

	// ErrConfigInvalid 配置不满足不变量
	ErrConfigInvalid = xerrors.New("breaker: invalid config")

	// ErrOpenState 熔断器处于打开状态，调用被快速拒绝
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")

	// ErrSemaphoreLocked 在途调用数达到容量上限，调用被拒绝
	ErrSemaphoreLocked = xerrors.New("breaker: concurrency capacity exhausted")

	// ErrTimeout 调用超过配置的超时时间
	ErrTimeout = xerrors.New("breaker: operation timed out")

	// ErrShutdown 熔断器已关闭，不再接受新调用
	ErrShutdown = xerrors.New("breaker: breaker has been shut down")

	// ErrServiceUnavailable 默认降级错误：未配置降级函数时，
	// 所有被吸收的失败统一转换为该错误（包装原始原因）。
	ErrServiceUnavailable = xerrors.New("breaker: service unavailable")

	// ErrBreakerNotFound 注册表中不存在指定名称的熔断器
	ErrBreakerNotFound = xerrors.New("breaker: breaker not found")
)
