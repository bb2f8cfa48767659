package handler

import (
	"context"
	"net/http"
	"time"

	"VISO_Collective/internal/middleware"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/pkg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Revoker *redis.SessionRepository 实现
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthHandler struct {
	revoker Revoker // 为空时登出不记录
	log     *zap.Logger
}

func NewAuthHandler(revoker Revoker, log *zap.Logger) *AuthHandler {
	return &AuthHandler{revoker: revoker, log: log}
}

// SignOut 吊销当前令牌直到其过期
func (h *AuthHandler) SignOut(c *gin.Context) {
	claims, raw, ok := middleware.TokenFrom(c)
	if !ok {
		writeError(c, h.log, model.ErrUnauthenticated, messages{})
		return
	}

	if h.revoker != nil {
		ttl := pkg.RemainingTTL(claims, time.Now())
		if err := h.revoker.Revoke(c.Request.Context(), pkg.RevocationKey(claims, raw), ttl); err != nil {
			writeError(c, h.log, err, messages{})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Signed out"})
}

// Healthz 存活检查
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
