package handler

import (
	"errors"
	"net/http"

	"VISO_Collective/internal/model"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericError = "Something went wrong, please try again later"

// messages 各实体自己的 404/403 提示
type messages struct {
	notFound  string
	forbidden string
}

// writeError 错误到状态码的唯一映射处
func writeError(c *gin.Context, log *zap.Logger, err error, msg messages) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(verr), "fields": verr.Fields})
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": orDefault(msg.notFound, "Record not found")})
	case errors.Is(err, model.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": orDefault(msg.forbidden, "You do not have permission to modify this record")})
	default:
		// 上游错误只记日志，不把存储细节返回给调用方
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		sentry.CaptureException(err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericError})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func validationMessage(verr *model.ValidationError) string {
	if len(verr.Fields) == 0 {
		return "Invalid request"
	}
	msg := "Invalid fields:"
	for i, f := range verr.Fields {
		if i > 0 {
			msg += ","
		}
		msg += " " + f.Field + " " + f.Message
	}
	return msg
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
