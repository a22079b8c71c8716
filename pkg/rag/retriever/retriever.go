// Package retriever runs hybrid vector + keyword retrieval against the
// index chosen by the query intent.
package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/rag/keyword"
	"github.com/quka-ai/airag/pkg/types"
)

// Strategy 一种意图对应一种检索方式
type Strategy interface {
	Retrieve(ctx context.Context, query string, allowedIDs []string, params types.RetrievalParams) ([]types.Candidate, error)
}

type Retriever struct {
	strategies map[types.Intent]Strategy
	observer   rag.Observer
}

func New(embedder ai.Embedder, detail rag.DetailIndex, summary rag.SummaryIndex, keywords *keyword.Holder, observer rag.Observer) *Retriever {
	return &Retriever{
		strategies: map[types.Intent]Strategy{
			types.INTENT_DETAIL: &DetailStrategy{embedder: embedder, index: detail, keywords: keywords},
			types.INTENT_GLOBAL: &GlobalStrategy{embedder: embedder, index: summary},
		},
		observer: rag.OrNop(observer),
	}
}

// Register 替换或新增某个意图的检索策略
func (r *Retriever) Register(intent types.Intent, s Strategy) {
	r.strategies[intent] = s
}

// Retrieve allowedIDs 为空时直接返回空结果，不访问任何索引
func (r *Retriever) Retrieve(ctx context.Context, query string, allowedIDs []string, intent types.Intent, params types.RetrievalParams) ([]types.Candidate, error) {
	if len(allowedIDs) == 0 || params.TopK <= 0 {
		return nil, nil
	}
	strategy, ok := r.strategies[intent]
	if !ok {
		return nil, errors.New("Retriever.Retrieve", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("%w: unknown intent %s", errors.ErrValidation, intent))
	}

	start := time.Now()
	defer func() {
		r.observer.RetrieveDuration(string(intent), time.Since(start))
	}()
	return strategy.Retrieve(ctx, query, allowedIDs, params)
}

// similarity 把 L2 距离转换为 (0, 1] 的相似度
func similarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

func capability(trace string, err error) error {
	return errors.New(trace, i18n.ERROR_CAPABILITY, fmt.Errorf("%w: %w", errors.ErrCapability, err))
}
