package handler

import (
	"net/http"

	"VISO_Collective/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MemberHandler struct {
	svc *service.MemberService
	log *zap.Logger
}

func NewMemberHandler(svc *service.MemberService, log *zap.Logger) *MemberHandler {
	return &MemberHandler{svc: svc, log: log}
}

// List 返回成员数组，带 id 时返回单个成员
func (h *MemberHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if id := c.Query("id"); id != "" {
		member, err := h.svc.Get(ctx, id)
		if err != nil {
			writeError(c, h.log, err, messages{notFound: "Member with ID " + id + " not found"})
			return
		}
		c.JSON(http.StatusOK, member)
		return
	}

	members, err := h.svc.List(ctx)
	if err != nil {
		writeError(c, h.log, err, messages{})
		return
	}
	c.JSON(http.StatusOK, members)
}
