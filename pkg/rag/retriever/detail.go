package retriever

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/rag/keyword"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

// DEDUP_PREFIX_RUNES 同名文档的大块前缀相同视为重复上下文
const DEDUP_PREFIX_RUNES = 100

// DetailStrategy 小块向量 + BM25 融合，返回大块上下文
type DetailStrategy struct {
	embedder ai.Embedder
	index    rag.DetailIndex
	keywords *keyword.Holder
}

func (s *DetailStrategy) Retrieve(ctx context.Context, query string, allowedIDs []string, params types.RetrievalParams) ([]types.Candidate, error) {
	k := params.TopK * 2

	vectorHits, vectorErr := s.vectorSearch(ctx, query, allowedIDs, k)
	keywordHits, keywordScores := s.keywordSearch(query, allowedIDs)

	if vectorErr != nil {
		if len(keywordHits) == 0 {
			return nil, capability("DetailStrategy.Retrieve", vectorErr)
		}
		slog.Warn("vector search failed, using keyword results only",
			slog.String("query", query),
			slog.Int("keyword_hits", len(keywordHits)),
			slog.String("error", vectorErr.Error()))
	}

	var (
		order      []string
		candidates = make(map[string]*types.Candidate)
	)
	get := func(e types.DetailEntry) *types.Candidate {
		if c, ok := candidates[e.ID]; ok {
			return c
		}
		c := &types.Candidate{
			ChunkID:     e.ID,
			KnowledgeID: e.KnowledgeID,
			Name:        e.Name,
			CourseName:  e.CourseName,
			SmallText:   e.SmallText,
			LargeText:   e.LargeText,
		}
		candidates[e.ID] = c
		order = append(order, e.ID)
		return c
	}

	for _, hit := range vectorHits {
		c := get(hit.DetailEntry)
		c.VectorScore = max(c.VectorScore, similarity(hit.Distance))
	}
	// 向量结果中的小块总是合并关键词分数，仅靠关键词召回的新小块最多补充 k 个
	var keywordOnly int
	for i, hit := range keywordHits {
		if _, ok := candidates[hit.Entry.ID]; !ok {
			if keywordOnly >= k {
				continue
			}
			keywordOnly++
		}
		c := get(*hit.Entry)
		c.KeywordScore = keywordScores[i]
	}

	list := lo.Map(order, func(id string, _ int) types.Candidate {
		c := candidates[id]
		c.Score = params.VectorWeight*c.VectorScore + params.KeywordWeight*c.KeywordScore
		if params.UseLargeChunk {
			c.Passage = c.LargeText
		} else {
			c.Passage = c.SmallText
		}
		return *c
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })

	list = lo.UniqBy(list, func(c types.Candidate) string {
		return c.Name + "\x00" + utils.TruncateRunes(c.LargeText, DEDUP_PREFIX_RUNES)
	})
	if len(list) > params.TopK {
		list = list[:params.TopK]
	}
	return list, nil
}

func (s *DetailStrategy) vectorSearch(ctx context.Context, query string, allowedIDs []string, k int) ([]types.DetailHit, error) {
	vector, err := ai.FirstEmbedding(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, allowedIDs, uint64(k))
}

// keywordSearch 分数按全部命中中的最大值归一化，再过滤可见范围，按分数降序返回
func (s *DetailStrategy) keywordSearch(query string, allowedIDs []string) ([]keyword.Hit, []float64) {
	if s.keywords == nil {
		return nil, nil
	}
	hits := s.keywords.Load().Search(query)
	if len(hits) == 0 {
		return nil, nil
	}

	maxScore := lo.MaxBy(hits, func(a, b keyword.Hit) bool { return a.Score > b.Score }).Score
	if maxScore <= 0 {
		return nil, nil
	}

	allowed := lo.SliceToMap(allowedIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	hits = lo.Filter(hits, func(h keyword.Hit, _ int) bool {
		_, ok := allowed[h.Entry.KnowledgeID]
		return ok
	})
	return hits, lo.Map(hits, func(h keyword.Hit, _ int) float64 { return h.Score / maxScore })
}
