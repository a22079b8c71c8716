package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/airag/pkg/register"
	"github.com/quka-ai/airag/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.KnowledgeStore = NewKnowledgeStore(provider)
	})
}

// KnowledgeStore 资料元数据表
type KnowledgeStore struct {
	CommonFields
}

func NewKnowledgeStore(provider SqlProviderAchieve) *KnowledgeStore {
	store := &KnowledgeStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_KNOWLEDGE)
	store.SetAllColumns("id", "name", "source_type", "owner_id", "course_id", "course_name", "file_type", "chunks_count", "summary_count", "created_at")
	return store
}

// Create 重复入库时覆盖除 created_at 以外的所有字段
func (s *KnowledgeStore) Create(ctx context.Context, data types.Knowledge) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.Name, data.SourceType, data.OwnerID, data.CourseID, data.CourseName, data.FileType, data.ChunksCount, data.SummaryCount, data.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, source_type = EXCLUDED.source_type, owner_id = EXCLUDED.owner_id, course_id = EXCLUDED.course_id, course_name = EXCLUDED.course_name, file_type = EXCLUDED.file_type, chunks_count = EXCLUDED.chunks_count, summary_count = EXCLUDED.summary_count")

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *KnowledgeStore) Get(ctx context.Context, id string) (*types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Knowledge
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *KnowledgeStore) Delete(ctx context.Context, id string) error {
	_, err := s.execBuilder(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"id": id}))
	return err
}

// List 按创建时间倒序
func (s *KnowledgeStore) List(ctx context.Context, opts types.ListKnowledgeOptions) ([]types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC", "id")
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Knowledge
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *KnowledgeStore) Total(ctx context.Context, opts types.ListKnowledgeOptions) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res int64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}
