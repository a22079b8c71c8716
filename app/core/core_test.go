package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/app/store/memstore"
	"github.com/quka-ai/airag/pkg/rag/keyword"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/types"
)

func newTestCore(t *testing.T) *Core {
	fake := testutils.NewFakeAI()
	return NewCore(CoreConfig{RAG: RAGConfig{VectorStore: VECTOR_STORE_MEMORY}}, memstore.New(), srv.NewAI(fake, nil), nil)
}

func TestNewCore(t *testing.T) {
	core := newTestCore(t)

	assert.Equal(t, DefaultRAGConfig().RelevanceThreshold, core.Cfg().RAG.RelevanceThreshold)
	assert.NotNil(t, core.RAG().Indexer)
	assert.NotNil(t, core.RAG().Router)
	assert.NotNil(t, core.RAG().Retriever)
	assert.NotNil(t, core.RAG().Reranker)
	assert.Nil(t, core.FileStorage())
	assert.Equal(t, false, core.GetAIStatus()["rerank_available"])
}

func TestCoreBootstrap(t *testing.T) {
	core := newTestCore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	doc := &types.Knowledge{ID: "k1", Name: "redis.md", SourceType: types.KNOWLEDGE_SOURCE_PERSONAL, OwnerID: "u1"}
	_, err := core.RAG().Indexer.Add(ctx, doc, "Redis 是一个内存数据库。\n\nRedis 支持持久化。")
	require.NoError(t, err)

	// 模拟新实例启动：清空关键词索引后从原文索引重建
	core.RAG().Keywords.Swap(keyword.Build(nil))
	assert.False(t, core.RAG().Keywords.Enabled())
	require.NoError(t, core.Bootstrap(ctx))
	assert.True(t, core.RAG().Keywords.Enabled())
}
