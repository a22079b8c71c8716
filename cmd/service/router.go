package service

import (
	"github.com/gin-gonic/gin"

	"github.com/quka-ai/airag/app/core"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/app/response"
	"github.com/quka-ai/airag/cmd/service/handler"
	"github.com/quka-ai/airag/cmd/service/middleware"
	"github.com/quka-ai/airag/pkg/mcp"
	"github.com/quka-ai/airag/pkg/metrics"
)

const API_PREFIX = "/api/v1/airag"

func GetUserLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			claims, _ := v1.InjectUserClaims(c)
			return claims.User
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	var (
		userLimit = GetUserLimitBuilder(s.Core)
		limits    = s.Core.Cfg().RateLimit
	)

	// logic 层直接使用 gin.Context 作为 context，需要透传请求的取消信号
	s.Engine.ContextWithFallback = true
	s.Engine.Use(gin.Recovery())
	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.Metrics(s.Core))

	api := s.Engine.Group(API_PREFIX)
	{
		api.GET("/health", s.Health)
		api.GET("/metrics", metrics.DefaultExportHandler())
		api.Any("/mcp", mcp.MCPStreamableHandler(s.Core))

		authed := api.Group("")
		authed.Use(middleware.AcceptLanguage(), middleware.RequireUser())
		{
			knowledge := authed.Group("/knowledge")
			{
				ingestLimit := userLimit("ingest", core.WithLimit(limits.IngestPerMinute))
				knowledge.POST("", ingestLimit, s.AddKnowledge)
				knowledge.POST("/course", ingestLimit, s.AddCourseKnowledge)
				knowledge.POST("/list", s.ListKnowledge)
				knowledge.DELETE("/*id", s.DeleteKnowledge)
			}

			authed.POST("/ingest", userLimit("ingest", core.WithLimit(limits.IngestPerMinute)), s.Ingest)
			authed.POST("/chat", userLimit("chat", core.WithLimit(limits.ChatPerMinute)), s.Chat)
			authed.GET("/stats", s.Stats)
		}
	}
}
