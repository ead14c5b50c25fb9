package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/OnellHernandez/studio/internal/user"
	"github.com/gin-gonic/gin"
)

// ContextUserID 已认证用户 ID 在 gin.Context 中的键
const ContextUserID = "user_id"

// TokenValidator 校验会话 Token 并返回用户 ID
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// AuthMiddleware 会话 Token 验证中间件
// 用于验证 API 请求中的 Bearer Token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 提取 Authorization 头
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "MISSING_AUTH_HEADER", "Missing authorization header")
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "INVALID_AUTH_FORMAT", "Invalid authorization format. Expected: Bearer <token>")
			return
		}

		// 3. 验证 Token
		userID, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			handleAuthError(c, err)
			return
		}

		// 4. 将用户 ID 存入 Context
		c.Set(ContextUserID, userID)

		c.Next()
	}
}

// UserID 获取当前请求的用户 ID，未认证时为空
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// handleAuthError 处理认证错误
func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrTokenExpired):
		abortUnauthorized(c, "TOKEN_EXPIRED", "Token expired")
	case errors.Is(err, user.ErrInvalidToken):
		abortUnauthorized(c, "INVALID_TOKEN", "Invalid token")
	default:
		abortUnauthorized(c, "AUTH_ERROR", "Authentication failed")
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
