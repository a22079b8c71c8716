package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/pkg/mcp/tools"
)

// MCPServer MCP 服务器
type MCPServer struct {
	server *mcp.Server
	core   *core.Core
}

// NewMCPServer 创建新的 MCP 服务器
func NewMCPServer(appCore *core.Core) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "airag-mcp",
		Title:   "AIRAG Knowledge Retrieval",
		Version: core.VERSION,
	}, nil)

	// 注册所有工具
	tools.RegisterTools(server, appCore)

	return &MCPServer{
		server: server,
		core:   appCore,
	}
}

func (s *MCPServer) Server() *mcp.Server {
	return s.server
}
