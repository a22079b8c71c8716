package keyword

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/quka-ai/airag/pkg/types"
)

const (
	DEFAULT_K1 = 1.5
	DEFAULT_B  = 0.75
)

type Hit struct {
	Entry *types.DetailEntry
	Score float64
}

// Index 基于 BM25 的倒排索引，构建后只读，通过 Holder 整体替换
type Index struct {
	k1, b    float64
	entries  []types.DetailEntry
	lengths  []int
	avgLen   float64
	idf      map[string]float64
	postings map[string][]posting
}

type posting struct {
	doc int
	tf  int
}

// Build 从原文索引的全部小块构建关键词索引
func Build(entries []types.DetailEntry) *Index {
	idx := &Index{
		k1:       DEFAULT_K1,
		b:        DEFAULT_B,
		entries:  entries,
		lengths:  make([]int, len(entries)),
		idf:      make(map[string]float64),
		postings: make(map[string][]posting),
	}

	var total int
	for i, entry := range entries {
		tokens := Tokenize(entry.SmallText)
		idx.lengths[i] = len(tokens)
		total += len(tokens)

		freq := make(map[string]int)
		for _, token := range tokens {
			freq[token]++
		}
		for token, tf := range freq {
			idx.postings[token] = append(idx.postings[token], posting{doc: i, tf: tf})
		}
	}

	if len(entries) > 0 {
		idx.avgLen = float64(total) / float64(len(entries))
	}

	n := float64(len(entries))
	for token, list := range idx.postings {
		df := float64(len(list))
		// lucene 形式的 idf 恒为正，小语料下不会出现负分
		idx.idf[token] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}

	return idx
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Search 返回所有得分大于 0 的小块，按得分降序
func (idx *Index) Search(query string) []Hit {
	if idx.Len() == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, token := range Tokenize(query) {
		idf, ok := idx.idf[token]
		if !ok {
			continue
		}
		for _, p := range idx.postings[token] {
			tf := float64(p.tf)
			norm := 1 - idx.b
			if idx.avgLen > 0 {
				norm += idx.b * float64(idx.lengths[p.doc]) / idx.avgLen
			}
			scores[p.doc] += idf * tf * (idx.k1 + 1) / (tf + idx.k1*norm)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Entry: &idx.entries[doc], Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Entry.ID < hits[j].Entry.ID
		}
		return hits[i].Score > hits[j].Score
	})
	return hits
}

// Holder 读者要么看到旧索引要么看到新索引，不会看到构建一半的索引
type Holder struct {
	current atomic.Pointer[Index]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.current.Store(Build(nil))
	return h
}

func (h *Holder) Load() *Index {
	return h.current.Load()
}

// Swap 替换为新索引，返回旧索引
func (h *Holder) Swap(idx *Index) *Index {
	return h.current.Swap(idx)
}

// Enabled 当前索引非空
func (h *Holder) Enabled() bool {
	return h.Load().Len() > 0
}
