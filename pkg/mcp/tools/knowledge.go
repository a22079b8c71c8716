package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quka-ai/airag/app/core"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/mcp/auth"
	"github.com/quka-ai/airag/pkg/types"
)

func RegisterIngestKnowledgeTool(server *mcp.Server, core *core.Core) {
	handler := &IngestKnowledgeHandler{core: core}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_knowledge",
		Description: "Index plain text or markdown into the knowledge base, replacing any document with the same id. Course documents can only be written by system callers",
	}, handler.Handle)
}

// IngestKnowledgeInput 写入知识的输入参数
type IngestKnowledgeInput struct {
	ID   string `json:"id" jsonschema:"Knowledge id, reusing an id replaces the document"`
	Name string `json:"name,omitempty" jsonschema:"Display name of the document"`
	Text string `json:"text" jsonschema:"The content of the document (markdown or plain text)"`

	SourceType string `json:"source_type,omitempty" jsonschema:"personal (default) or course"`
	CourseID   string `json:"course_id,omitempty" jsonschema:"Course id, required when source_type is course"`
	CourseName string `json:"course_name,omitempty"`
	FileType   string `json:"file_type,omitempty"`
}

type IngestKnowledgeOutput struct {
	ID          string `json:"id"`
	ChunksCount int    `json:"chunks_count"`
}

type IngestKnowledgeHandler struct {
	core *core.Core
}

func (h *IngestKnowledgeHandler) Handle(
	ctx context.Context,
	req *mcp.CallToolRequest,
	args IngestKnowledgeInput,
) (*mcp.CallToolResult, IngestKnowledgeOutput, error) {
	user, ok := auth.GetUserContext(ctx)
	if !ok {
		return nil, IngestKnowledgeOutput{}, fmt.Errorf("user context not found")
	}

	n, err := v1.NewKnowledgeLogic(ctx, h.core).Ingest(args.ID, args.Text, v1.IngestMeta{
		Name:       args.Name,
		SourceType: types.KnowledgeSourceType(args.SourceType),
		CourseID:   args.CourseID,
		CourseName: args.CourseName,
		FileType:   args.FileType,
	})
	if err != nil {
		return nil, IngestKnowledgeOutput{}, fmt.Errorf("failed to ingest knowledge: %w", err)
	}

	slog.Info("knowledge ingested via mcp",
		slog.String("knowledge_id", args.ID),
		slog.String("user_id", user.User),
		slog.Int("chunks", n))

	return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("indexed %s: %d chunks", args.ID, n)},
			},
		}, IngestKnowledgeOutput{
			ID:          args.ID,
			ChunksCount: n,
		}, nil
}

func RegisterListKnowledgeTool(server *mcp.Server, core *core.Core) {
	handler := &ListKnowledgeHandler{core: core}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_knowledge",
		Description: "List the user's personal documents and the documents of the given courses",
	}, handler.Handle)
}

type ListKnowledgeInput struct {
	CourseIDs []string `json:"course_ids,omitempty" jsonschema:"Course ids whose documents are visible to the user"`
}

type ListKnowledgeOutput struct {
	Items []v1.KnowledgeItem `json:"items"`
}

type ListKnowledgeHandler struct {
	core *core.Core
}

func (h *ListKnowledgeHandler) Handle(
	ctx context.Context,
	req *mcp.CallToolRequest,
	args ListKnowledgeInput,
) (*mcp.CallToolResult, ListKnowledgeOutput, error) {
	if _, ok := auth.GetUserContext(ctx); !ok {
		return nil, ListKnowledgeOutput{}, fmt.Errorf("user context not found")
	}

	list, err := v1.NewKnowledgeLogic(ctx, h.core).List(args.CourseIDs)
	if err != nil {
		return nil, ListKnowledgeOutput{}, fmt.Errorf("failed to list knowledge: %w", err)
	}

	text := fmt.Sprintf("%d documents", len(list))
	for _, v := range list {
		text += fmt.Sprintf("\n- %s (%s, %d chunks)", v.Name, v.ID, v.ChunksCount)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, ListKnowledgeOutput{Items: list}, nil
}
