package router

import (
	"VISO_Collective/internal/handler"
	"VISO_Collective/internal/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type Handlers struct {
	Members *handler.MemberHandler
	Posts   *handler.PostHandler
	Events  *handler.EventHandler
	Auth    *handler.AuthHandler
}

type Options struct {
	Identity    gin.HandlerFunc // 身份解析中间件
	Log         *zap.Logger
	ServiceName string // 非空时启用 otelgin 链路追踪
}

func InitRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	// AccessLog 在外层，panic 的请求也有访问日志
	r.Use(middleware.AccessLog(opts.Log), middleware.Recovery(opts.Log))
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", handler.Healthz)

	api := r.Group("/api")
	if opts.Identity != nil {
		api.Use(opts.Identity)
	}

	// 表格数据接口，读接口匿名可用
	airtable := api.Group("/airtable")
	{
		airtable.GET("/members", h.Members.List)

		airtable.GET("/posts", h.Posts.List)
		airtable.POST("/posts", h.Posts.Create)
		airtable.PATCH("/posts", h.Posts.Update)
		airtable.DELETE("/posts", h.Posts.Delete)

		airtable.GET("/events", h.Events.List)
		airtable.POST("/events", h.Events.Create)
		airtable.PATCH("/events", h.Events.Update)
		airtable.DELETE("/events", h.Events.Delete)
	}

	// 登录态接口
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signout", h.Auth.SignOut)
	}

	return r
}
