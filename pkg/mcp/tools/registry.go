package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quka-ai/airag/app/core"
)

type registrar func(server *mcp.Server, core *core.Core)

// 对外暴露的工具：检索、入库、列表
var registrars = []registrar{
	RegisterSearchKnowledgeTool,
	RegisterIngestKnowledgeTool,
	RegisterListKnowledgeTool,
}

func RegisterTools(server *mcp.Server, core *core.Core) {
	for _, r := range registrars {
		r(server, core)
	}
}
