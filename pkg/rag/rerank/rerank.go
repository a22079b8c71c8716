// Package rerank rescores retrieval candidates with a cross-encoder and
// drops those below the relevance threshold.
package rerank

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

const (
	DEFAULT_THRESHOLD = 0.3
	DEFAULT_MAX_CHARS = 2000
	DEFAULT_TIMEOUT   = 30 * time.Second
)

type Options struct {
	MaxChars int
	Timeout  time.Duration
}

type Reranker struct {
	client   ai.Reranker
	opts     Options
	observer rag.Observer
}

// New client 为 nil 时所有请求走降级逻辑
func New(client ai.Reranker, opts Options, observer rag.Observer) *Reranker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DEFAULT_MAX_CHARS
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DEFAULT_TIMEOUT
	}
	return &Reranker{client: client, opts: opts, observer: rag.OrNop(observer)}
}

// Rerank 返回 score >= threshold 的候选，按 rerank 分数降序。
// 第二个返回值表示是否使用了降级分数
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []types.Candidate, threshold float64) ([]types.RerankedCandidate, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	scores, err := r.score(ctx, query, candidates)
	fallback := err != nil
	if fallback {
		slog.Warn("rerank failed, fallback to retrieval scores",
			slog.String("query", query),
			slog.Int("candidates", len(candidates)),
			slog.String("error", err.Error()))
		r.observer.RerankFallback()
		scores = lo.Map(candidates, func(c types.Candidate, _ int) float64 { return c.Score })
	}

	result := make([]types.RerankedCandidate, 0, len(candidates))
	for i, c := range candidates {
		if scores[i] < threshold {
			continue
		}
		result = append(result, types.RerankedCandidate{Candidate: c, RerankScore: scores[i], IsRelevant: true})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].RerankScore > result[j].RerankScore })
	return result, fallback
}

type errNoReranker struct{}

func (errNoReranker) Error() string { return "reranker is not configured" }

func (r *Reranker) score(ctx context.Context, query string, candidates []types.Candidate) ([]float64, error) {
	if r.client == nil {
		return nil, errNoReranker{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	docs := lo.Map(candidates, func(c types.Candidate, _ int) *ai.RerankDoc {
		return &ai.RerankDoc{ID: c.ChunkID, Content: utils.TruncateRunes(c.Passage, r.opts.MaxChars)}
	})
	ranks, _, err := r.client.Rerank(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	byID := lo.SliceToMap(ranks, func(item ai.RankDocItem) (string, float64) { return item.ID, item.Score })
	// 未返回分数的候选视为不相关
	return lo.Map(candidates, func(c types.Candidate, _ int) float64 { return byID[c.ChunkID] }), nil
}
