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
		provider.stores.DetailIndexStore = NewDetailIndexStore(provider)
	})
}

// INSERT_BATCH_SIZE 单条 insert 的行数上限，避免超过 pg 的参数个数限制
const INSERT_BATCH_SIZE = 500

// DetailIndexStore 原文索引，向量为小块文本的 embedding
type DetailIndexStore struct {
	CommonFields
}

func NewDetailIndexStore(provider SqlProviderAchieve) *DetailIndexStore {
	repo := &DetailIndexStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DETAIL_INDEX)
	repo.SetAllColumns("id", "knowledge_id", "name", "course_name", "small_text", "large_text", "large_index", "small_index", "total_large_chunks", "created_at")
	return repo
}

// BatchCreate 按 id upsert
func (s *DetailIndexStore) BatchCreate(ctx context.Context, entries []types.DetailEntry) error {
	for _, batch := range lo.Chunk(entries, INSERT_BATCH_SIZE) {
		query := sq.Insert(s.GetTable()).
			Columns("id", "knowledge_id", "name", "course_name", "small_text", "large_text", "large_index", "small_index", "total_large_chunks", "embedding", "created_at")
		for _, data := range batch {
			if data.CreatedAt == 0 {
				data.CreatedAt = time.Now().Unix()
			}
			query = query.Values(data.ID, data.KnowledgeID, data.Name, data.CourseName, data.SmallText, data.LargeText, data.LargeIndex, data.SmallIndex, data.TotalLargeChunks, data.Embedding, data.CreatedAt)
		}
		query = query.Suffix("ON CONFLICT (id) DO UPDATE SET knowledge_id = EXCLUDED.knowledge_id, name = EXCLUDED.name, course_name = EXCLUDED.course_name, small_text = EXCLUDED.small_text, large_text = EXCLUDED.large_text, large_index = EXCLUDED.large_index, small_index = EXCLUDED.small_index, total_large_chunks = EXCLUDED.total_large_chunks, embedding = EXCLUDED.embedding, created_at = EXCLUDED.created_at")

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

// Search L2 距离升序
func (s *DetailIndexStore) Search(ctx context.Context, vector []float32, knowledgeIDs []string, limit uint64) ([]types.DetailHit, error) {
	if len(knowledgeIDs) == 0 || limit == 0 {
		return nil, nil
	}
	// pgvector supported distance functions are:
	// <-> - L2 distance
	// <#> - (negative) inner product
	// <=> - cosine distance
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

	var res []types.DetailHit
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *DetailIndexStore) DeleteByKnowledge(ctx context.Context, knowledgeID string) error {
	_, err := s.execBuilder(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"knowledge_id": knowledgeID}))
	return err
}

// ListAll 不查询 embedding 列
func (s *DetailIndexStore) ListAll(ctx context.Context) ([]types.DetailEntry, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.DetailEntry
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *DetailIndexStore) CountByKnowledge(ctx context.Context, knowledgeIDs []string) (map[string]int, error) {
	return countByKnowledge(ctx, &s.CommonFields, knowledgeIDs)
}

func (s *DetailIndexStore) Total(ctx context.Context) (int64, error) {
	return total(ctx, &s.CommonFields)
}

func countByKnowledge(ctx context.Context, c *CommonFields, knowledgeIDs []string) (map[string]int, error) {
	query := sq.Select("knowledge_id", "COUNT(*) AS count").From(c.GetTable()).GroupBy("knowledge_id")
	if len(knowledgeIDs) > 0 {
		query = query.Where(sq.Eq{"knowledge_id": knowledgeIDs})
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.KnowledgeCount
	if err = c.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return lo.SliceToMap(res, func(item types.KnowledgeCount) (string, int) {
		return item.KnowledgeID, item.Count
	}), nil
}

func total(ctx context.Context, c *CommonFields) (int64, error) {
	queryString, args, err := sq.Select("COUNT(*)").From(c.GetTable()).ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res int64
	if err = c.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}
