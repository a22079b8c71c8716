// Package indexer keeps the detail index, the summary index and the keyword
// snapshot in step for every document mutation.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/rag/chunker"
	"github.com/quka-ai/airag/pkg/rag/keyword"
	"github.com/quka-ai/airag/pkg/rag/summarizer"
	"github.com/quka-ai/airag/pkg/types"
)

// Locker 跨实例的写锁，单实例部署时可以不设置
type Locker interface {
	Acquire(ctx context.Context) error
	Release()
}

// MutationHook 写入或删除完成后调用，用于通知其他实例重建关键词索引
type MutationHook func(ctx context.Context, knowledgeID string)

// InconsistencyError Detail 已写入但 Summary 写入失败
type InconsistencyError struct {
	KnowledgeID string
	Cause       error
	// RolledBack 是否已删除 Detail 中该文档的条目
	RolledBack bool
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("index inconsistency on %s (rolled back: %t): %v", e.KnowledgeID, e.RolledBack, e.Cause)
}

func (e *InconsistencyError) Unwrap() []error {
	return []error{errors.ErrIndexInconsistency, e.Cause}
}

type Indexer struct {
	chunker    *chunker.Chunker
	summarizer *summarizer.Summarizer
	embedder   ai.Embedder
	detail     rag.DetailIndex
	summary    rag.SummaryIndex
	keywords   *keyword.Holder
	observer   rag.Observer

	mu     sync.Mutex
	locker Locker
	hooks  []MutationHook
}

func New(c *chunker.Chunker, s *summarizer.Summarizer, embedder ai.Embedder, detail rag.DetailIndex, summary rag.SummaryIndex, keywords *keyword.Holder, observer rag.Observer) *Indexer {
	return &Indexer{
		chunker:    c,
		summarizer: s,
		embedder:   embedder,
		detail:     detail,
		summary:    summary,
		keywords:   keywords,
		observer:   rag.OrNop(observer),
	}
}

func (i *Indexer) WithLocker(l Locker) *Indexer {
	i.locker = l
	return i
}

func (i *Indexer) OnMutation(hook MutationHook) {
	i.hooks = append(i.hooks, hook)
}

func (i *Indexer) Keywords() *keyword.Holder {
	return i.keywords
}

func (i *Indexer) lock(ctx context.Context) (func(), error) {
	i.mu.Lock()
	if i.locker == nil {
		return i.mu.Unlock, nil
	}
	if err := i.locker.Acquire(ctx); err != nil {
		i.mu.Unlock()
		return nil, err
	}
	return func() {
		i.locker.Release()
		i.mu.Unlock()
	}, nil
}

func capability(trace string, err error) error {
	return errors.New(trace, i18n.ERROR_CAPABILITY, fmt.Errorf("%w: %w", errors.ErrCapability, err))
}

// Add 写入一份文档，已存在的同 id 文档会被整体替换。
// 返回小块数量，并回填 doc 的 ChunksCount/SummaryCount
func (i *Indexer) Add(ctx context.Context, doc *types.Knowledge, text string) (int, error) {
	chunks, err := i.chunker.Chunk(doc.ID, text)
	if err != nil {
		return 0, err
	}

	embeddings, err := i.embedder.EmbeddingForDocument(ctx, doc.Name, lo.Map(chunks, func(c types.Chunk, _ int) string {
		return c.SmallText
	}))
	if err != nil {
		return 0, capability("Indexer.Add.EmbeddingForDocument", err)
	}
	if len(embeddings.Data) != len(chunks) {
		return 0, capability("Indexer.Add.EmbeddingForDocument", fmt.Errorf("got %d vectors for %d chunks", len(embeddings.Data), len(chunks)))
	}

	// 摘要失败会降级，不会返回错误
	summaries := i.summarizer.Summarize(ctx, text, doc.Name)
	summaryVectors, err := i.embedder.EmbeddingForDocument(ctx, doc.Name, lo.Map(summaries, func(s types.ChunkSummary, _ int) string {
		return s.Summary
	}))
	if err != nil {
		return 0, capability("Indexer.Add.EmbeddingForDocument", err)
	}
	if len(summaryVectors.Data) != len(summaries) {
		return 0, capability("Indexer.Add.EmbeddingForDocument", fmt.Errorf("got %d vectors for %d summaries", len(summaryVectors.Data), len(summaries)))
	}

	now := time.Now().Unix()
	details := lo.Map(chunks, func(c types.Chunk, idx int) types.DetailEntry {
		return types.DetailEntry{
			ID:               c.ID,
			KnowledgeID:      doc.ID,
			Name:             doc.Name,
			CourseName:       doc.CourseName,
			SmallText:        c.SmallText,
			LargeText:        c.LargeText,
			LargeIndex:       c.LargeIndex,
			SmallIndex:       c.SmallIndex,
			TotalLargeChunks: c.TotalLargeChunks,
			Embedding:        pgvector.NewVector(embeddings.Data[idx]),
			CreatedAt:        now,
		}
	})
	summaryEntries := lo.Map(summaries, func(s types.ChunkSummary, idx int) types.SummaryEntry {
		return types.SummaryEntry{
			ID:            types.SummaryID(doc.ID, s.ChunkIndex),
			KnowledgeID:   doc.ID,
			Name:          doc.Name,
			CourseName:    doc.CourseName,
			DocType:       types.DOC_TYPE_SUMMARY,
			Summary:       s.Summary,
			OriginalChunk: s.OriginalChunk,
			ChunkIndex:    s.ChunkIndex,
			LowFidelity:   s.LowFidelity,
			Embedding:     pgvector.NewVector(summaryVectors.Data[idx]),
			CreatedAt:     now,
		}
	})

	unlock, err := i.lock(ctx)
	if err != nil {
		return 0, errors.New("Indexer.Add.Lock", i18n.ERROR_INTERNAL, err)
	}
	defer unlock()

	// 旧数据一旦开始删除，无论后续写入成败都要按原文索引的当前内容重建关键词索引
	defer func() {
		i.rebuildLocked(ctx)
		i.notify(ctx, doc.ID)
	}()

	if err = i.deleteAll(ctx, doc.ID); err != nil {
		return 0, errors.Trace("Indexer.Add", err)
	}

	if err = i.detail.BatchCreate(ctx, details); err != nil {
		return 0, errors.New("Indexer.Add.DetailIndex.BatchCreate", i18n.ERROR_INTERNAL, err)
	}

	if err = i.summary.BatchCreate(ctx, summaryEntries); err != nil {
		ie := &InconsistencyError{KnowledgeID: doc.ID, Cause: err}
		if rbErr := i.detail.DeleteByKnowledge(ctx, doc.ID); rbErr != nil {
			slog.Error("failed to rollback detail index", slog.String("knowledge_id", doc.ID), slog.String("error", rbErr.Error()))
		} else {
			ie.RolledBack = true
		}
		return 0, ie
	}

	i.observer.IngestChunks(len(chunks))

	doc.ChunksCount = len(chunks)
	doc.SummaryCount = len(summaryEntries)
	slog.Info("knowledge indexed",
		slog.String("knowledge_id", doc.ID),
		slog.String("name", doc.Name),
		slog.Int("chunks", len(chunks)),
		slog.Int("summaries", len(summaryEntries)))
	return len(chunks), nil
}

func (i *Indexer) deleteAll(ctx context.Context, knowledgeID string) error {
	if err := i.detail.DeleteByKnowledge(ctx, knowledgeID); err != nil {
		return errors.New("Indexer.DetailIndex.DeleteByKnowledge", i18n.ERROR_INTERNAL, err)
	}
	if err := i.summary.DeleteByKnowledge(ctx, knowledgeID); err != nil {
		return errors.New("Indexer.SummaryIndex.DeleteByKnowledge", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// Remove 从两个索引中删除文档，并重建关键词索引
func (i *Indexer) Remove(ctx context.Context, knowledgeID string) error {
	unlock, err := i.lock(ctx)
	if err != nil {
		return errors.New("Indexer.Remove.Lock", i18n.ERROR_INTERNAL, err)
	}
	defer unlock()

	if err = i.deleteAll(ctx, knowledgeID); err != nil {
		return errors.Trace("Indexer.Remove", err)
	}
	i.rebuildLocked(ctx)
	i.notify(ctx, knowledgeID)
	return nil
}

// Rebuild 从原文索引全量重建关键词索引，启动时和收到其他实例的变更通知时调用
func (i *Indexer) Rebuild(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rebuild(ctx)
}

func (i *Indexer) rebuildLocked(ctx context.Context) {
	// 重建失败时保留旧快照，由定时巡检再次重建
	if err := i.rebuild(ctx); err != nil {
		slog.Error("failed to rebuild keyword index", slog.String("error", err.Error()))
	}
}

func (i *Indexer) rebuild(ctx context.Context) error {
	start := time.Now()
	entries, err := i.detail.ListAll(ctx)
	if err != nil {
		return errors.New("Indexer.Rebuild.DetailIndex.ListAll", i18n.ERROR_INTERNAL, err)
	}
	i.keywords.Swap(keyword.Build(entries))
	i.observer.KeywordRebuild(len(entries), time.Since(start))
	return nil
}

func (i *Indexer) notify(ctx context.Context, knowledgeID string) {
	for _, hook := range i.hooks {
		hook(ctx, knowledgeID)
	}
}
