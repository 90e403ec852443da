package breaker

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/fuse/xerrors"
)

// GinMiddleware 创建 Gin 熔断中间件，按派生名称隔离各路由的熔断状态。
//
// 参数:
//   - group: 熔断器注册表
//   - keyFunc: 从请求中派生熔断器名称的函数，nil 时默认使用
//     "METHOD /path"（路由模板，而非原始 URL，避免路径参数导致名称爆炸）
//
// 被熔断或超出容量的请求返回 503 和 JSON 错误体。
//
// 处理器链在调用方 goroutine 内同步执行：gin.Context 不跨 goroutine，
// 配置的 Timeout 不对处理器做竞速，慢处理器请依赖服务器侧超时。
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(breaker.GinMiddleware(group, nil))
func GinMiddleware(group *Group, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return c.Request.Method + " " + c.FullPath()
		}
	}

	return func(c *gin.Context) {
		name := keyFunc(c)
		if name == "" {
			c.Next()
			return
		}

		_, err := group.executeInline(c.Request.Context(), name, func(ctx context.Context, _ ...any) (any, error) {
			c.Next()
			if len(c.Errors) > 0 {
				return nil, c.Errors.Last()
			}
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, xerrors.Wrapf(ErrServiceUnavailable, "upstream returned %d", c.Writer.Status())
			}
			return nil, nil
		})

		// 请求被拒绝（未执行处理器）时才改写响应
		if err != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "service unavailable",
			})
		}
	}
}
