package handler

import (
	"net/http"

	"VISO_Collective/internal/middleware"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

type UpdateEventReq struct {
	ID string `json:"id"`
	service.UpdateEventInput
}

func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

var eventMessages = messages{
	notFound: "Event not found",
}

// List 活动查询：id 取单条，userOnly=true 只看自己的，past=true 看已结束的，默认即将举行
func (h *EventHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if id := c.Query("id"); id != "" {
		event, err := h.svc.Get(ctx, id)
		if err != nil {
			writeError(c, h.log, err, eventMessages)
			return
		}
		c.JSON(http.StatusOK, gin.H{"event": event})
		return
	}

	var (
		events []model.Event
		err    error
	)
	switch {
	case c.Query("userOnly") == "true":
		events, err = h.svc.ListMine(ctx, middleware.CallerFrom(c))
	case c.Query("past") == "true":
		events, err = h.svc.ListPast(ctx)
	default:
		events, err = h.svc.ListUpcoming(ctx)
	}
	if err != nil {
		writeError(c, h.log, err, eventMessages)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Create 创建活动
func (h *EventHandler) Create(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, eventMessages)
		return
	}

	var req service.CreateEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	event, err := h.svc.Create(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, h.log, err, eventMessages)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Event created successfully",
		"event":   event,
	})
}

// Update 部分更新活动，只有创建者可以修改
func (h *EventHandler) Update(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, eventMessages)
		return
	}

	var req UpdateEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.ID == "" {
		badRequest(c, "Event ID is required")
		return
	}

	event, err := h.svc.Update(c.Request.Context(), caller, req.ID, req.UpdateEventInput)
	if err != nil {
		writeError(c, h.log, err, messages{
			notFound:  eventMessages.notFound,
			forbidden: "You do not have permission to update this event",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event updated successfully",
		"event":   event,
	})
}

// Delete 删除活动，只有创建者可以删除
func (h *EventHandler) Delete(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, eventMessages)
		return
	}

	id := c.Query("id")
	if id == "" {
		badRequest(c, "Event ID is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), caller, id); err != nil {
		writeError(c, h.log, err, messages{
			notFound:  eventMessages.notFound,
			forbidden: "You do not have permission to delete this event",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event deleted successfully",
	})
}
