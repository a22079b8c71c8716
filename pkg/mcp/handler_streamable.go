package mcp

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quka-ai/airag/app/core"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/mcp/auth"
)

// MCPStreamableHandler 基于 MCP SDK StreamableHTTPHandler 的处理器
func MCPStreamableHandler(appCore *core.Core) gin.HandlerFunc {
	// 所有会话共享同一个 server
	mcpServer := NewMCPServer(appCore)

	streamableHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			return mcpServer.server
		},
		&mcp.StreamableHTTPOptions{
			// 使用 JSON 响应格式（而不是 SSE）
			JSONResponse: true,
			Stateless:    false,
		},
	)

	slog.Info("MCP Streamable Handler initialized")

	return func(c *gin.Context) {
		claims, err := auth.ValidateRequest(c)
		if err != nil {
			slog.Warn("MCP auth failed", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"jsonrpc": "2.0",
				"error": map[string]interface{}{
					"code":    -32000,
					"message": "Authentication failed: " + err.Error(),
				},
				"id": nil,
			})
			return
		}

		slog.Debug("MCP streamable request received",
			slog.String("method", c.Request.Method),
			slog.String("user_id", claims.User),
			slog.String("session_id", c.Request.Header.Get("Mcp-Session-Id")))

		// 工具处理器从 context 中获取用户信息
		ctx := auth.SetUserContext(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(v1.WithLanguage(ctx, auth.ClientLanguage(c)))
		streamableHandler.ServeHTTP(c.Writer, c.Request)
	}
}
