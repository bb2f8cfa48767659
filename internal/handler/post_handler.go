package handler

import (
	"net/http"

	"VISO_Collective/internal/middleware"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostHandler struct {
	svc *service.PostService
	log *zap.Logger
}

type UpdatePostReq struct {
	ID string `json:"id"`
	service.UpdatePostInput
}

func NewPostHandler(svc *service.PostService, log *zap.Logger) *PostHandler {
	return &PostHandler{svc: svc, log: log}
}

var postMessages = messages{
	notFound: "Post not found",
}

// List 帖子查询：id 取单条，userOnly=true 只看自己的，category 按分类过滤
func (h *PostHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if id := c.Query("id"); id != "" {
		post, err := h.svc.Get(ctx, id)
		if err != nil {
			writeError(c, h.log, err, postMessages)
			return
		}
		c.JSON(http.StatusOK, gin.H{"post": post})
		return
	}

	category := model.PostCategory(c.Query("category"))
	var (
		posts []model.Post
		err   error
	)
	if c.Query("userOnly") == "true" {
		posts, err = h.svc.ListMine(ctx, middleware.CallerFrom(c), category)
	} else {
		posts, err = h.svc.List(ctx, category)
	}
	if err != nil {
		writeError(c, h.log, err, postMessages)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Create 创建帖子
func (h *PostHandler) Create(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, postMessages)
		return
	}

	var req service.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.svc.Create(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, h.log, err, postMessages)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Post created successfully",
		"post":    post,
	})
}

// Update 部分更新帖子，只有作者可以修改
func (h *PostHandler) Update(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, postMessages)
		return
	}

	var req UpdatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.ID == "" {
		badRequest(c, "Post ID is required")
		return
	}

	post, err := h.svc.Update(c.Request.Context(), caller, req.ID, req.UpdatePostInput)
	if err != nil {
		writeError(c, h.log, err, messages{
			notFound:  postMessages.notFound,
			forbidden: "You do not have permission to update this post",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post updated successfully",
		"post":    post,
	})
}

// Delete 删除帖子，只有作者可以删除
func (h *PostHandler) Delete(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if !caller.Authenticated() {
		writeError(c, h.log, model.ErrUnauthenticated, postMessages)
		return
	}

	id := c.Query("id")
	if id == "" {
		badRequest(c, "Post ID is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), caller, id); err != nil {
		writeError(c, h.log, err, messages{
			notFound:  postMessages.notFound,
			forbidden: "You do not have permission to delete this post",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Post deleted successfully",
	})
}
