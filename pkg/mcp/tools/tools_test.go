package tools

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/core/srv"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/app/store/memstore"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/mcp/auth"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.SetupIDWorker(1)
	os.Exit(m.Run())
}

const redisDoc = `# Redis 简介

Redis 是一个开源的内存数据库，常用作缓存和消息队列。

## 持久化

Redis 支持 RDB 快照和 AOF 日志两种持久化方式。`

func newCore() *core.Core {
	return core.NewCore(core.CoreConfig{
		RAG: core.RAGConfig{VectorStore: core.VECTOR_STORE_MEMORY},
	}, memstore.New(), srv.NewAI(testutils.NewFakeAI(), nil), nil)
}

func userCtx(user string) context.Context {
	return auth.SetUserContext(context.Background(), v1.UserClaims{User: user})
}

func systemCtx() context.Context {
	return auth.SetUserContext(context.Background(), v1.UserClaims{User: "course-service", Role: "system"})
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestIngestKnowledge(t *testing.T) {
	c := newCore()
	handler := &IngestKnowledgeHandler{core: c}

	tests := []struct {
		name     string
		ctx      context.Context
		args     IngestKnowledgeInput
		wantCode int
		wantErr  bool
		check    func(t *testing.T, doc *types.Knowledge)
	}{
		{
			name:    "no user",
			ctx:     context.Background(),
			args:    IngestKnowledgeInput{ID: "k0", Text: redisDoc},
			wantErr: true,
		},
		{
			name: "personal",
			ctx:  userCtx("u1"),
			args: IngestKnowledgeInput{ID: "k1", Name: "redis.md", Text: redisDoc},
			check: func(t *testing.T, doc *types.Knowledge) {
				assert.Equal(t, "redis.md", doc.Name)
				assert.Equal(t, types.KNOWLEDGE_SOURCE_PERSONAL, doc.SourceType)
				assert.Equal(t, "u1", doc.OwnerID)
			},
		},
		{
			name: "course by user",
			ctx:  userCtx("u1"),
			args: IngestKnowledgeInput{
				ID: "c1-redis", Text: redisDoc,
				SourceType: string(types.KNOWLEDGE_SOURCE_COURSE), CourseID: "c1",
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name: "course by system",
			ctx:  systemCtx(),
			args: IngestKnowledgeInput{
				ID: "c1-redis", Name: "第一章", Text: redisDoc,
				SourceType: string(types.KNOWLEDGE_SOURCE_COURSE), CourseID: "c1", CourseName: "数据库", FileType: "md",
			},
			check: func(t *testing.T, doc *types.Knowledge) {
				assert.Equal(t, types.KNOWLEDGE_SOURCE_COURSE, doc.SourceType)
				assert.Equal(t, types.SYSTEM_USER, doc.OwnerID)
				assert.Equal(t, "c1", doc.CourseID)
				assert.Equal(t, "数据库", doc.CourseName)
			},
		},
		{
			name: "replace other user's document",
			ctx:  userCtx("u2"),
			args: IngestKnowledgeInput{ID: "k1", Text: "覆盖"},
			// 原资料属于 u1
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out, err := handler.Handle(tt.ctx, &mcp.CallToolRequest{}, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, res)
				if tt.wantCode != 0 {
					var ce *errors.CustomizedError
					require.True(t, errors.As(err, &ce))
					assert.Equal(t, tt.wantCode, ce.GetCode())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.args.ID, out.ID)
			assert.Greater(t, out.ChunksCount, 0)
			assert.Contains(t, textOf(t, res), tt.args.ID)

			doc, err := c.Store().KnowledgeStore().Get(context.Background(), tt.args.ID)
			require.NoError(t, err)
			tt.check(t, doc)
		})
	}

	// 拒绝的课程资料不应落库
	_, err := c.Store().KnowledgeStore().Get(context.Background(), "k0")
	assert.Error(t, err)
}

func TestSearchKnowledge(t *testing.T) {
	c := newCore()
	_, _, err := (&IngestKnowledgeHandler{core: c}).Handle(userCtx("u1"), &mcp.CallToolRequest{},
		IngestKnowledgeInput{ID: "k1", Name: "redis.md", Text: redisDoc})
	require.NoError(t, err)

	handler := NewSearchKnowledgeHandler(c)
	query := "Redis 是一个开源的内存数据库吗"

	tests := []struct {
		name      string
		ctx       context.Context
		args      SearchKnowledgeInput
		wantErr   string
		wantCount int
	}{
		{
			name:    "no user",
			ctx:     context.Background(),
			args:    SearchKnowledgeInput{Query: query, KnowledgeIDs: []string{"k1"}},
			wantErr: "user context not found",
		},
		{
			name:    "blank query",
			ctx:     userCtx("u1"),
			args:    SearchKnowledgeInput{Query: "  ", KnowledgeIDs: []string{"k1"}},
			wantErr: "query is required",
		},
		{
			name:      "no knowledge ids",
			ctx:       userCtx("u1"),
			args:      SearchKnowledgeInput{Query: query},
			wantCount: 0,
		},
		{
			name:      "matched",
			ctx:       userCtx("u1"),
			args:      SearchKnowledgeInput{Query: query, KnowledgeIDs: []string{"k1", "k1", ""}},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out, err := handler.Handle(tt.ctx, &mcp.CallToolRequest{}, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.args.Query, out.Query)
			assert.Equal(t, tt.wantCount, out.Count)
			require.Len(t, out.Sources, tt.wantCount)
			require.NotNil(t, out.RetrievalInfo)
			assert.Equal(t, FormatSources(out.Sources), textOf(t, res))

			if tt.wantCount > 0 {
				assert.Equal(t, "k1", out.Sources[0].KnowledgeID)
				assert.Equal(t, "redis.md", out.Sources[0].Name)
			}
		})
	}
}

func TestFormatSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []types.Source
		want    string
	}{
		{name: "empty", want: "no relevant passages found"},
		{
			name:    "single",
			sources: []types.Source{{Name: "a.md", Content: "甲"}},
			want:    "[资料1] 来源：a.md\n甲",
		},
		{
			name:    "numbered in order",
			sources: []types.Source{{Name: "a.md", Content: "甲"}, {Name: "b.md", Content: "乙"}},
			want:    "[资料1] 来源：a.md\n甲\n\n---\n\n[资料2] 来源：b.md\n乙",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSources(tt.sources))
		})
	}
}

func TestListKnowledge(t *testing.T) {
	c := newCore()
	ingest := &IngestKnowledgeHandler{core: c}
	_, _, err := ingest.Handle(userCtx("u1"), &mcp.CallToolRequest{}, IngestKnowledgeInput{ID: "k1", Name: "redis.md", Text: redisDoc})
	require.NoError(t, err)
	_, _, err = ingest.Handle(userCtx("u2"), &mcp.CallToolRequest{}, IngestKnowledgeInput{ID: "k2", Name: "other.md", Text: redisDoc})
	require.NoError(t, err)
	_, _, err = ingest.Handle(systemCtx(), &mcp.CallToolRequest{}, IngestKnowledgeInput{
		ID: "c1-redis", Name: "第一章", Text: redisDoc,
		SourceType: string(types.KNOWLEDGE_SOURCE_COURSE), CourseID: "c1",
	})
	require.NoError(t, err)

	handler := &ListKnowledgeHandler{core: c}

	tests := []struct {
		name    string
		ctx     context.Context
		args    ListKnowledgeInput
		wantErr bool
		wantIDs []string
	}{
		{name: "no user", ctx: context.Background(), wantErr: true},
		{name: "personal only", ctx: userCtx("u1"), wantIDs: []string{"k1"}},
		{name: "with course", ctx: userCtx("u1"), args: ListKnowledgeInput{CourseIDs: []string{"c1"}}, wantIDs: []string{"k1", "c1-redis"}},
		{name: "unknown course", ctx: userCtx("u2"), args: ListKnowledgeInput{CourseIDs: []string{"c9"}}, wantIDs: []string{"k2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out, err := handler.Handle(tt.ctx, &mcp.CallToolRequest{}, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var ids []string
			for _, v := range out.Items {
				ids = append(ids, v.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)

			text := textOf(t, res)
			for _, v := range out.Items {
				assert.Contains(t, text, v.Name+" ("+v.ID)
			}
		})
	}
}
