package rag

import (
	"context"

	"github.com/quka-ai/airag/pkg/types"
)

// DetailIndex 原文索引：小块向量 + 大块上下文
type DetailIndex interface {
	BatchCreate(ctx context.Context, entries []types.DetailEntry) error
	// Search 按 L2 距离升序返回，knowledgeIDs 为空时不返回任何结果
	Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.DetailHit, error)
	DeleteByKnowledge(ctx context.Context, knowledgeID string) error
	// ListAll 全量枚举，用于重建关键词索引，不返回向量
	ListAll(ctx context.Context) ([]types.DetailEntry, error)
	CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error)
	Total(ctx context.Context) (int64, error)
}

// SummaryIndex 摘要索引：摘要向量 + 原始块
type SummaryIndex interface {
	BatchCreate(ctx context.Context, entries []types.SummaryEntry) error
	Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.SummaryHit, error)
	DeleteByKnowledge(ctx context.Context, knowledgeID string) error
	CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error)
	Total(ctx context.Context) (int64, error)
}
