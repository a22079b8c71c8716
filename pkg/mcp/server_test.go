package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/app/store/memstore"
	"github.com/quka-ai/airag/pkg/testutils"
)

func newCore() *core.Core {
	return core.NewCore(core.CoreConfig{
		RAG: core.RAGConfig{VectorStore: core.VECTOR_STORE_MEMORY},
	}, memstore.New(), srv.NewAI(testutils.NewFakeAI(), nil), nil)
}

func TestRegisteredTools(t *testing.T) {
	ctx := context.Background()
	server := NewMCPServer(newCore())

	st, ct := sdk.NewInMemoryTransports()
	ss, err := server.Server().Connect(ctx, st, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.ListTools(ctx, &sdk.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_knowledge", "ingest_knowledge", "list_knowledge"}, names)
}

func TestStreamableHandlerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Any("/mcp", MCPStreamableHandler(newCore()))

	tests := []struct {
		name   string
		target string
		header map[string]string
	}{
		{name: "no user", target: "/mcp"},
		{name: "role only", target: "/mcp?role=system", header: map[string]string{"X-User-Role": "system"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var res struct {
				JSONRPC string `json:"jsonrpc"`
				Error   struct {
					Code    int    `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, "2.0", res.JSONRPC)
			assert.Equal(t, -32000, res.Error.Code)
			assert.Contains(t, res.Error.Message, "Authentication failed")
		})
	}
}
