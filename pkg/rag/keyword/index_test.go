package keyword

import (
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/types"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "cjk", in: "进程调度", want: []string{"进", "程", "调", "度"}},
		{name: "mixed", in: "TCP三次握手, HTTP/2 协议", want: []string{"tcp", "三", "次", "握", "手", "http", "2", "协", "议"}},
		{name: "alnum run", in: "GPT4o-mini_v2", want: []string{"gpt4o", "mini", "v2"}},
		{name: "separators only", in: " ,.!？、", want: nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Tokenize(c.in))
		})
	}
}

func entries() []types.DetailEntry {
	return []types.DetailEntry{
		{ID: "k1_0_0", KnowledgeID: "k1", SmallText: "进程是资源分配的基本单位"},
		{ID: "k1_0_1", KnowledgeID: "k1", SmallText: "线程是CPU调度的基本单位"},
		{ID: "k2_0_0", KnowledgeID: "k2", SmallText: "TCP uses a three-way handshake"},
	}
}

func TestSearch(t *testing.T) {
	idx := Build(entries())
	require.Equal(t, 3, idx.Len())

	hits := idx.Search("进程")
	require.NotEmpty(t, hits)
	assert.Equal(t, "k1_0_0", hits[0].Entry.ID)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}

	hits = idx.Search("tcp handshake")
	require.Len(t, hits, 1)
	assert.Equal(t, "k2", hits[0].Entry.KnowledgeID)

	assert.Empty(t, idx.Search("kubernetes"))
	assert.Empty(t, idx.Search(""))
}

func TestSearchOrdering(t *testing.T) {
	idx := Build(entries())
	hits := idx.Search("调度 单位")
	require.Len(t, hits, 2)
	// 同时命中 调 度 的小块排在前面
	assert.Equal(t, "k1_0_1", hits[0].Entry.ID)
	assert.True(t, lo.IsSortedByKey(hits, func(h Hit) float64 { return -h.Score }))
}

func TestSingleDocumentCorpus(t *testing.T) {
	idx := Build(entries()[:1])
	hits := idx.Search("进程")
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder()
	assert.False(t, h.Enabled())
	assert.Empty(t, h.Load().Search("进程"))

	old := h.Swap(Build(entries()))
	assert.Equal(t, 0, old.Len())
	assert.True(t, h.Enabled())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				h.Swap(Build(entries()))
				return
			}
			// 读者看到的总是完整的索引
			assert.Equal(t, 3, h.Load().Len())
		}(i)
	}
	wg.Wait()
}
