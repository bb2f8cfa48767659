package middleware

import (
	"context"
	"strings"

	"VISO_Collective/internal/model"
	"VISO_Collective/internal/pkg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ContextCallerKey = "caller"
	ContextClaimsKey = "claims"
	ContextTokenKey  = "token"
)

// RevocationChecker 登出吊销查询，*redis.SessionRepository 实现
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Identity 解析 Bearer 令牌并注入调用者。
// 没有令牌、令牌无效或已吊销时请求按匿名处理，是否需要登录由 handler 决定
func Identity(tokens *pkg.IdentityTokens, revoked RevocationChecker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			log.Debug("invalid authorization format")
			c.Next()
			return
		}
		tokenStr := strings.TrimSpace(parts[1])

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			log.Debug("invalid identity token", zap.Error(err))
			c.Next()
			return
		}

		// redis 校验是否已登出
		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), pkg.RevocationKey(claims, tokenStr))
			if err != nil {
				log.Warn("revocation check failed, treating request as anonymous", zap.Error(err))
				c.Next()
				return
			}
			if isRevoked {
				c.Next()
				return
			}
		}

		// 注入调用者
		c.Set(ContextCallerKey, claims.Caller())
		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, tokenStr)
		c.Next()
	}
}

// CallerFrom 取当前调用者，匿名时返回零值
func CallerFrom(c *gin.Context) model.Caller {
	v, ok := c.Get(ContextCallerKey)
	if !ok {
		return model.Caller{}
	}
	caller, _ := v.(model.Caller)
	return caller
}

// TokenFrom 当前请求携带的有效令牌
func TokenFrom(c *gin.Context) (*pkg.Claims, string, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, "", false
	}
	claims, ok := v.(*pkg.Claims)
	if !ok {
		return nil, "", false
	}
	return claims, c.GetString(ContextTokenKey), true
}
