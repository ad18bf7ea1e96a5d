package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-manager/internal/core/auth"
	"task-manager/internal/domain"
	resp "task-manager/internal/transport/http/response"
)

const (
	keyUser  = "authUser"
	keyToken = "authToken"
)

// AuthSession 解出 Bearer 令牌 → 验签 → 查用户 → 确认令牌还在该用户的
// 会话集合里（签名有效但已登出的令牌必须拒绝）。
// 缺头、验签失败、用户不在、令牌已撤销——对外全部是同一个 401，
// 不泄露到底挂在哪一步。
func AuthSession(j *auth.JWTer, users domain.UserRepository) gin.HandlerFunc {
	reject := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "please authenticate"))
	}
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			reject(c)
			return
		}
		token := strings.TrimPrefix(ah, "Bearer ")

		uid, err := j.Parse(token)
		if err != nil {
			reject(c)
			return
		}
		u, err := users.FindByID(c.Request.Context(), uid)
		if err != nil || u == nil {
			reject(c)
			return
		}
		ok, err := users.HasToken(c.Request.Context(), uid, token)
		if err != nil || !ok {
			reject(c)
			return
		}

		// 原始令牌给下游：logout 只撤销当前这一个会话
		c.Set(keyUser, u)
		c.Set(keyToken, token)
		c.Next()
	}
}

// CurrentUser 取中间件解析出的用户；只能在 AuthSession 之后的 handler 里调
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(keyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// CurrentToken 当前请求携带的原始令牌
func CurrentToken(c *gin.Context) string {
	return c.GetString(keyToken)
}
