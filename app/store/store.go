package store

import (
	"context"

	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/types"
)

// Provider postgres 和内存两种实现
type Provider interface {
	KnowledgeStore() KnowledgeStore
	DetailIndexStore() DetailIndexStore
	SummaryIndexStore() SummaryIndexStore
}

// KnowledgeStore 资料元数据
type KnowledgeStore interface {
	// Create 以 id 为主键写入，已存在时覆盖
	Create(ctx context.Context, data types.Knowledge) error
	// Get 不存在时返回 sql.ErrNoRows
	Get(ctx context.Context, id string) (*types.Knowledge, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts types.ListKnowledgeOptions) ([]types.Knowledge, error)
	Total(ctx context.Context, opts types.ListKnowledgeOptions) (int64, error)
}

// DetailIndexStore 原文索引
type DetailIndexStore interface {
	rag.DetailIndex
}

// SummaryIndexStore 摘要索引
type SummaryIndexStore interface {
	rag.SummaryIndex
}
