package middleware

import (
	"github.com/OnellHernandez/studio/internal/stats"
	"github.com/gin-gonic/gin"
)

// RequestCounterMiddleware 请求计数中间件
// 在请求完成后按状态码计数
func RequestCounterMiddleware(counter *stats.RequestCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		counter.Record(c.Writer.Status())
	}
}
