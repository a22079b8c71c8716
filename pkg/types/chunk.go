package types

import (
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// ChunkID 小块的确定性 id，同一文档重复切分得到相同的 id 序列
func ChunkID(knowledgeID string, largeIndex, smallIndex int) string {
	return fmt.Sprintf("%s_%d_%d", knowledgeID, largeIndex, smallIndex)
}

func SummaryID(knowledgeID string, chunkIndex int) string {
	return fmt.Sprintf("%s_summary_%d", knowledgeID, chunkIndex)
}

// Chunk 小索引大窗口：SmallText 用于检索，LargeText 用于返回上下文
type Chunk struct {
	ID               string `json:"id"`
	KnowledgeID      string `json:"knowledge_id"`
	SmallText        string `json:"small_text"`
	LargeText        string `json:"large_text"`
	LargeIndex       int    `json:"large_index"`
	SmallIndex       int    `json:"small_index"`
	TotalLargeChunks int    `json:"total_large_chunks"`
}

// ChunkSummary 块级摘要，OriginalChunk 保留原文用于引用展示
type ChunkSummary struct {
	Summary       string `json:"summary"`
	ChunkIndex    int    `json:"chunk_index"`
	OriginalChunk string `json:"original_chunk"`
	// LowFidelity 摘要失败时的截断降级结果，排序时不能等同于真实摘要
	LowFidelity bool `json:"low_fidelity"`
}

const DOC_TYPE_SUMMARY = "summary"

// DetailEntry 原文索引，向量 key 为小块文本
type DetailEntry struct {
	ID               string          `json:"id" db:"id"`
	KnowledgeID      string          `json:"knowledge_id" db:"knowledge_id"`
	Name             string          `json:"name" db:"name"`
	CourseName       string          `json:"course_name" db:"course_name"`
	SmallText        string          `json:"small_text" db:"small_text"`
	LargeText        string          `json:"large_text" db:"large_text"`
	LargeIndex       int             `json:"large_index" db:"large_index"`
	SmallIndex       int             `json:"small_index" db:"small_index"`
	TotalLargeChunks int             `json:"total_large_chunks" db:"total_large_chunks"`
	Embedding        pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt        int64           `json:"created_at" db:"created_at"`
}

type DetailHit struct {
	DetailEntry
	Distance float64 `json:"distance" db:"distance"`
}

// SummaryEntry 摘要索引，向量 key 为摘要文本
type SummaryEntry struct {
	ID            string          `json:"id" db:"id"`
	KnowledgeID   string          `json:"knowledge_id" db:"knowledge_id"`
	Name          string          `json:"name" db:"name"`
	CourseName    string          `json:"course_name" db:"course_name"`
	DocType       string          `json:"doc_type" db:"doc_type"`
	Summary       string          `json:"summary" db:"summary"`
	OriginalChunk string          `json:"original_chunk" db:"original_chunk"`
	ChunkIndex    int             `json:"chunk_index" db:"chunk_index"`
	LowFidelity   bool            `json:"low_fidelity" db:"low_fidelity"`
	Embedding     pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt     int64           `json:"created_at" db:"created_at"`
}

type SummaryHit struct {
	SummaryEntry
	Distance float64 `json:"distance" db:"distance"`
}

// KnowledgeCount 按 knowledge_id 聚合的条目数
type KnowledgeCount struct {
	KnowledgeID string `db:"knowledge_id"`
	Count       int    `db:"count"`
}
