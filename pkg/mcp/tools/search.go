package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quka-ai/airag/app/core"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/mcp/auth"
	"github.com/quka-ai/airag/pkg/types"
)

func RegisterSearchKnowledgeTool(server *mcp.Server, core *core.Core) {
	handler := NewSearchKnowledgeHandler(core)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search passages in the given knowledge documents, returns reranked sources without generating an answer",
	}, handler.Handle)
}

// SearchKnowledgeInput 搜索知识的输入参数
type SearchKnowledgeInput struct {
	Query        string   `json:"query" jsonschema:"The search query or question"`
	KnowledgeIDs []string `json:"knowledge_ids" jsonschema:"Knowledge ids the search is limited to"`
}

// SearchKnowledgeOutput 搜索知识的输出
type SearchKnowledgeOutput struct {
	Query         string               `json:"query"`
	Count         int                  `json:"count"`
	Sources       []types.Source       `json:"sources"`
	RetrievalInfo *types.RetrievalInfo `json:"retrieval_info,omitempty"`
}

// SearchKnowledgeHandler 搜索知识的处理器
type SearchKnowledgeHandler struct {
	core *core.Core
}

func NewSearchKnowledgeHandler(core *core.Core) *SearchKnowledgeHandler {
	return &SearchKnowledgeHandler{core: core}
}

// Handle 处理搜索知识请求
func (h *SearchKnowledgeHandler) Handle(
	ctx context.Context,
	req *mcp.CallToolRequest,
	args SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	if _, ok := auth.GetUserContext(ctx); !ok {
		return nil, SearchKnowledgeOutput{}, fmt.Errorf("user context not found")
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, SearchKnowledgeOutput{}, fmt.Errorf("query is required")
	}

	sources, info, err := v1.NewChatLogic(ctx, h.core).Search(args.Query, args.KnowledgeIDs)
	if err != nil {
		return nil, SearchKnowledgeOutput{}, fmt.Errorf("failed to search knowledge: %w", err)
	}

	return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: FormatSources(sources)},
			},
		}, SearchKnowledgeOutput{
			Query:         args.Query,
			Count:         len(sources),
			Sources:       sources,
			RetrievalInfo: info,
		}, nil
}

// FormatSources 与回答生成时的资料编号格式一致，便于客户端直接引用
func FormatSources(sources []types.Source) string {
	if len(sources) == 0 {
		return "no relevant passages found"
	}
	blocks := make([]string, 0, len(sources))
	for i, s := range sources {
		blocks = append(blocks, fmt.Sprintf(ai.PROMPT_SOURCE_ITEM_CN, i+1, s.Name, s.Content))
	}
	return strings.Join(blocks, ai.PROMPT_SOURCE_SEPARATOR)
}
