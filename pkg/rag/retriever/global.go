package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/types"
)

// LOW_FIDELITY_PENALTY 降级摘要只是原文截断，排序时打折
const LOW_FIDELITY_PENALTY = 0.5

// GlobalStrategy 检索摘要索引，按文档聚合原始块
type GlobalStrategy struct {
	embedder ai.Embedder
	index    rag.SummaryIndex
}

type group struct {
	first       types.SummaryHit
	score       float64
	similarity  float64
	chunks      map[int]string
	lowFidelity bool
}

func (s *GlobalStrategy) Retrieve(ctx context.Context, query string, allowedIDs []string, params types.RetrievalParams) ([]types.Candidate, error) {
	vector, err := ai.FirstEmbedding(ctx, s.embedder, query)
	if err != nil {
		return nil, capability("GlobalStrategy.Retrieve.Embedding", err)
	}
	hits, err := s.index.Search(ctx, vector, allowedIDs, uint64(params.TopK*3))
	if err != nil {
		return nil, capability("GlobalStrategy.Retrieve.Search", err)
	}

	var (
		order  []string
		groups = make(map[string]*group)
	)
	for _, hit := range hits {
		sim := similarity(hit.Distance)
		score := params.VectorWeight * sim
		if hit.LowFidelity {
			score *= LOW_FIDELITY_PENALTY
		}

		g, ok := groups[hit.KnowledgeID]
		if !ok {
			g = &group{first: hit, chunks: make(map[int]string)}
			groups[hit.KnowledgeID] = g
			order = append(order, hit.KnowledgeID)
		}
		if score > g.score {
			g.score = score
			g.similarity = sim
		}
		g.chunks[hit.ChunkIndex] = hit.OriginalChunk
		g.lowFidelity = g.lowFidelity || hit.LowFidelity
	}

	sort.SliceStable(order, func(i, j int) bool { return groups[order[i]].score > groups[order[j]].score })
	if len(order) > params.TopK {
		order = order[:params.TopK]
	}

	return lo.Map(order, func(kid string, _ int) types.Candidate {
		g := groups[kid]
		indexes := lo.Keys(g.chunks)
		sort.Ints(indexes)
		passage := strings.Join(lo.Map(indexes, func(i int, _ int) string { return g.chunks[i] }), "\n\n")

		return types.Candidate{
			ChunkID:     g.first.ID,
			KnowledgeID: kid,
			Name:        g.first.Name,
			CourseName:  g.first.CourseName,
			Passage:     passage,
			LargeText:   passage,
			VectorScore: g.similarity,
			Score:       g.score,
			LowFidelity: g.lowFidelity,
		}
	}), nil
}
