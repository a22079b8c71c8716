// Package memstore keeps knowledge metadata in process memory. It backs the
// "memory" vector store mode and the logic tests.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/quka-ai/airag/app/store"
	"github.com/quka-ai/airag/pkg/types"
)

var _ store.KnowledgeStore = (*KnowledgeStore)(nil)

type KnowledgeStore struct {
	mu    sync.RWMutex
	items map[string]types.Knowledge
}

func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{items: make(map[string]types.Knowledge)}
}

func (s *KnowledgeStore) Create(ctx context.Context, data types.Knowledge) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if exist, ok := s.items[data.ID]; ok {
		data.CreatedAt = exist.CreatedAt
	}
	s.items[data.ID] = data
	return nil
}

func (s *KnowledgeStore) Get(ctx context.Context, id string) (*types.Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &k, nil
}

func (s *KnowledgeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *KnowledgeStore) List(ctx context.Context, opts types.ListKnowledgeOptions) ([]types.Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []types.Knowledge
	for _, k := range s.items {
		if opts.Visible(k) {
			res = append(res, k)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt != res[j].CreatedAt {
			return res[i].CreatedAt > res[j].CreatedAt
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *KnowledgeStore) Total(ctx context.Context, opts types.ListKnowledgeOptions) (int64, error) {
	list, _ := s.List(ctx, opts)
	return int64(len(list)), nil
}
