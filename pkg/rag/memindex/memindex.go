// Package memindex is an in-process implementation of the detail and
// summary indexes. Search is a brute-force L2 scan, fine for tests and
// single-node setups with a small corpus.
package memindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/types"
)

var (
	_ rag.DetailIndex  = (*DetailIndex)(nil)
	_ rag.SummaryIndex = (*SummaryIndex)(nil)
)

func l2(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	// 维度不一致时多出的部分按 0 处理
	for _, v := range a[n:] {
		sum += float64(v * v)
	}
	for _, v := range b[n:] {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

type store[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	id      func(T) string
	kid     func(T) string
}

func (s *store[T]) put(entries []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[s.id(e)] = e
	}
}

func (s *store[T]) deleteByKnowledge(knowledgeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if s.kid(e) == knowledgeID {
			delete(s.entries, id)
		}
	}
}

func (s *store[T]) sorted() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := lo.Values(s.entries)
	sort.Slice(list, func(i, j int) bool { return s.id(list[i]) < s.id(list[j]) })
	return list
}

func (s *store[T]) count(knowledgeIDs []string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]int)
	for _, e := range s.entries {
		if len(knowledgeIDs) == 0 || lo.Contains(knowledgeIDs, s.kid(e)) {
			result[s.kid(e)]++
		}
	}
	return result
}

func (s *store[T]) total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries))
}

type scored[T any] struct {
	entry    T
	distance float64
}

func (s *store[T]) search(vector []float32, knowledgeIDs []string, limit uint64, embedding func(T) []float32) []scored[T] {
	if len(knowledgeIDs) == 0 || limit == 0 {
		return nil
	}
	allowed := lo.SliceToMap(knowledgeIDs, func(id string) (string, struct{}) { return id, struct{}{} })

	var result []scored[T]
	for _, e := range s.sorted() {
		if _, ok := allowed[s.kid(e)]; !ok {
			continue
		}
		result = append(result, scored[T]{entry: e, distance: l2(vector, embedding(e))})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].distance < result[j].distance })
	if uint64(len(result)) > limit {
		result = result[:limit]
	}
	return result
}

type DetailIndex struct {
	store store[types.DetailEntry]
	// FailWrite 测试用，非空时写入直接返回该错误
	FailWrite error
}

func NewDetailIndex() *DetailIndex {
	return &DetailIndex{store: store[types.DetailEntry]{
		entries: make(map[string]types.DetailEntry),
		id:      func(e types.DetailEntry) string { return e.ID },
		kid:     func(e types.DetailEntry) string { return e.KnowledgeID },
	}}
}

func (d *DetailIndex) BatchCreate(ctx context.Context, entries []types.DetailEntry) error {
	if d.FailWrite != nil {
		return d.FailWrite
	}
	d.store.put(entries)
	return nil
}

func (d *DetailIndex) Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.DetailHit, error) {
	found := d.store.search(vector, knowledgeIDs, limit, func(e types.DetailEntry) []float32 { return e.Embedding.Slice() })
	return lo.Map(found, func(item scored[types.DetailEntry], _ int) types.DetailHit {
		return types.DetailHit{DetailEntry: item.entry, Distance: item.distance}
	}), nil
}

func (d *DetailIndex) DeleteByKnowledge(ctx context.Context, knowledgeID string) error {
	d.store.deleteByKnowledge(knowledgeID)
	return nil
}

func (d *DetailIndex) ListAll(ctx context.Context) ([]types.DetailEntry, error) {
	return lo.Map(d.store.sorted(), func(e types.DetailEntry, _ int) types.DetailEntry {
		e.Embedding = pgvector.Vector{}
		return e
	}), nil
}

func (d *DetailIndex) CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error) {
	return d.store.count(knowledgeIDs), nil
}

func (d *DetailIndex) Total(ctx context.Context) (int64, error) {
	return d.store.total(), nil
}

type SummaryIndex struct {
	store     store[types.SummaryEntry]
	FailWrite error
}

func NewSummaryIndex() *SummaryIndex {
	return &SummaryIndex{store: store[types.SummaryEntry]{
		entries: make(map[string]types.SummaryEntry),
		id:      func(e types.SummaryEntry) string { return e.ID },
		kid:     func(e types.SummaryEntry) string { return e.KnowledgeID },
	}}
}

func (s *SummaryIndex) BatchCreate(ctx context.Context, entries []types.SummaryEntry) error {
	if s.FailWrite != nil {
		return s.FailWrite
	}
	s.store.put(entries)
	return nil
}

func (s *SummaryIndex) Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.SummaryHit, error) {
	found := s.store.search(vector, knowledgeIDs, limit, func(e types.SummaryEntry) []float32 { return e.Embedding.Slice() })
	return lo.Map(found, func(item scored[types.SummaryEntry], _ int) types.SummaryHit {
		return types.SummaryHit{SummaryEntry: item.entry, Distance: item.distance}
	}), nil
}

func (s *SummaryIndex) DeleteByKnowledge(ctx context.Context, knowledgeID string) error {
	s.store.deleteByKnowledge(knowledgeID)
	return nil
}

func (s *SummaryIndex) CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error) {
	return s.store.count(knowledgeIDs), nil
}

func (s *SummaryIndex) Total(ctx context.Context) (int64, error) {
	return s.store.total(), nil
}
