package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/quka-ai/airag/pkg/register"
	"github.com/quka-ai/airag/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.SummaryIndexStore = NewSummaryIndexStore(provider)
	})
}

// SummaryIndexStore 摘要索引，向量为摘要文本的 embedding
type SummaryIndexStore struct {
	CommonFields
}

func NewSummaryIndexStore(provider SqlProviderAchieve) *SummaryIndexStore {
	repo := &SummaryIndexStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_SUMMARY_INDEX)
	repo.SetAllColumns("id", "knowledge_id", "name", "course_name", "doc_type", "summary", "original_chunk", "chunk_index", "low_fidelity", "created_at")
	return repo
}

func (s *SummaryIndexStore) BatchCreate(ctx context.Context, entries []types.SummaryEntry) error {
	for _, batch := range lo.Chunk(entries, INSERT_BATCH_SIZE) {
		query := sq.Insert(s.GetTable()).
			Columns("id", "knowledge_id", "name", "course_name", "doc_type", "summary", "original_chunk", "chunk_index", "low_fidelity", "embedding", "created_at")
		for _, data := range batch {
			if data.CreatedAt == 0 {
				data.CreatedAt = time.Now().Unix()
			}
			if data.DocType == "" {
				data.DocType = types.DOC_TYPE_SUMMARY
			}
			query = query.Values(data.ID, data.KnowledgeID, data.Name, data.CourseName, data.DocType, data.Summary, data.OriginalChunk, data.ChunkIndex, data.LowFidelity, data.Embedding, data.CreatedAt)
		}
		query = query.Suffix("ON CONFLICT (id) DO UPDATE SET knowledge_id = EXCLUDED.knowledge_id, name = EXCLUDED.name, course_name = EXCLUDED.course_name, doc_type = EXCLUDED.doc_type, summary = EXCLUDED.summary, original_chunk = EXCLUDED.original_chunk, chunk_index = EXCLUDED.chunk_index, low_fidelity = EXCLUDED.low_fidelity, embedding = EXCLUDED.embedding, created_at = EXCLUDED.created_at")

		queryString, args, err := query.ToSql()
		if err != nil {
			return ErrorSqlBuild(err)
		}

		if _, err = s.GetMaster(ctx).Exec(queryString, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *SummaryIndexStore) Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.SummaryHit, error) {
	if len(knowledgeIDs) == 0 || limit == 0 {
		return nil, nil
	}
	query := sq.Select(s.GetAllColumns()...).
		Column(sq.Expr("embedding <-> ? AS distance", pgvector.NewVector(vector))).
		From(s.GetTable()).
		Where(sq.Eq{"knowledge_id": knowledgeIDs}).
		OrderBy("distance", "id").
		Limit(limit)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.SummaryHit
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SummaryIndexStore) DeleteByKnowledge(ctx context.Context, knowledgeID string) error {
	_, err := s.execBuilder(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"knowledge_id": knowledgeID}))
	return err
}

func (s *SummaryIndexStore) CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error) {
	return countByKnowledge(ctx, &s.CommonFields, knowledgeIDs)
}

func (s *SummaryIndexStore) Total(ctx context.Context) (int64, error) {
	return total(ctx, &s.CommonFields)
}
