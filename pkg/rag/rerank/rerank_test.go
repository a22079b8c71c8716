package rerank

import (
	"context"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/types"
)

type fallbackCounter struct {
	rag.NopObserver
	n int
}

func (f *fallbackCounter) RerankFallback() { f.n++ }

func candidates() []types.Candidate {
	return []types.Candidate{
		{ChunkID: "a", Passage: "alpha", Score: 0.9},
		{ChunkID: "b", Passage: "beta", Score: 0.2},
		{ChunkID: "c", Passage: "gamma", Score: 0.5},
	}
}

func ids(list []types.RerankedCandidate) []string {
	return lo.Map(list, func(c types.RerankedCandidate, _ int) string { return c.ChunkID })
}

func TestRerank(t *testing.T) {
	client := &testutils.FakeReranker{Scores: map[string]float64{"alpha": 0.1, "beta": 0.8, "gamma": 0.3}}
	r := New(client, Options{}, nil)

	list, fallback := r.Rerank(context.Background(), "q", candidates(), 0.3)
	assert.False(t, fallback)
	// 阈值包含等于
	assert.Equal(t, []string{"b", "c"}, ids(list))
	assert.InDelta(t, 0.8, list[0].RerankScore, 1e-9)
	assert.True(t, list[0].IsRelevant)
}

func TestRerankTruncatesPassages(t *testing.T) {
	client := &testutils.FakeReranker{}
	r := New(client, Options{MaxChars: 5}, nil)

	r.Rerank(context.Background(), "q", []types.Candidate{{ChunkID: "a", Passage: strings.Repeat("长", 10)}}, 0)
	require.Len(t, client.Docs, 1)
	assert.Equal(t, "长长长长长", client.Docs[0].Content)
}

func TestRerankFallback(t *testing.T) {
	for name, client := range map[string]*testutils.FakeReranker{
		"error":          {Err: testutils.ErrFake},
		"not configured": nil,
	} {
		t.Run(name, func(t *testing.T) {
			counter := &fallbackCounter{}
			var r *Reranker
			if client == nil {
				r = New(nil, Options{}, counter)
			} else {
				r = New(client, Options{}, counter)
			}

			list, fallback := r.Rerank(context.Background(), "q", candidates(), 0.3)
			assert.True(t, fallback)
			assert.Equal(t, 1, counter.n)
			assert.Equal(t, []string{"a", "c"}, ids(list))
			assert.InDelta(t, 0.9, list[0].RerankScore, 1e-9)
		})
	}
}

func TestRerankEmpty(t *testing.T) {
	r := New(&testutils.FakeReranker{Err: testutils.ErrFake}, Options{}, nil)
	list, fallback := r.Rerank(context.Background(), "q", nil, 0.3)
	assert.Empty(t, list)
	assert.False(t, fallback)
}
