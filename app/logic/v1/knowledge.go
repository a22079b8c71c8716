package v1

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/extract"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/object-storage/s3"
	"github.com/quka-ai/airag/pkg/rag/indexer"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

const INDEX_STRATEGY_DUAL = "dual_index"

type KnowledgeLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewKnowledgeLogic(ctx context.Context, core *core.Core) *KnowledgeLogic {
	l := &KnowledgeLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}

	return l
}

type AddKnowledgeRequest struct {
	Name          string `json:"name" binding:"required"`
	ContentBase64 string `json:"content_base64" binding:"required"`
	FileType      string `json:"file_type"`
}

type AddCourseKnowledgeRequest struct {
	CourseID   string `json:"course_id" form:"course_id" binding:"required"`
	CourseName string `json:"course_name" form:"course_name"`
	FileID     string `json:"file_id" form:"file_id" binding:"required"`
	FileName   string `json:"file_name" form:"file_name" binding:"required"`
	FileType   string `json:"file_type" form:"file_type"`
	Content    []byte `json:"-" form:"-"`
}

type AddKnowledgeResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ChunksCount int    `json:"chunks_count"`
	Skipped     bool   `json:"skipped,omitempty"`
	Message     string `json:"message,omitempty"`
}

// IngestMeta 直接写入文本时附带的元数据
type IngestMeta struct {
	Name       string                    `json:"name"`
	SourceType types.KnowledgeSourceType `json:"source_type"`
	OwnerID    string                    `json:"owner_id"`
	CourseID   string                    `json:"course_id"`
	CourseName string                    `json:"course_name"`
	FileType   string                    `json:"file_type"`
}

// decodeContent 兼容 data url 形式的 "data:application/pdf;base64,xxxx"
func decodeContent(raw string) ([]byte, error) {
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.New("decodeContent", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("%w: %w", errors.ErrValidation, err))
	}
	return data, nil
}

func fileTypeOf(fileType, name string) string {
	if fileType != "" {
		return extract.NormalizeFileType(fileType)
	}
	if ext := filepath.Ext(name); ext != "" {
		return extract.NormalizeFileType(ext)
	}
	return extract.FILE_TYPE_TXT
}

func extractText(fileType string, data []byte) (string, error) {
	text, err := extract.Text(fileType, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("extractText", i18n.ERROR_EMPTY_DOCUMENT, fmt.Errorf("%w: no text extracted from file", errors.ErrValidation))
	}
	return text, nil
}

// Add 个人资料入库
func (l *KnowledgeLogic) Add(req AddKnowledgeRequest) (*AddKnowledgeResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("KnowledgeLogic.Add.Name", i18n.ERROR_INVALIDARGUMENT, errors.ErrValidation)
	}
	user := l.GetUserInfo().GetUser()
	if user == "" {
		return nil, errors.New("KnowledgeLogic.Add.User", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized)
	}

	data, err := decodeContent(req.ContentBase64)
	if err != nil {
		return nil, errors.Trace("KnowledgeLogic.Add", err)
	}
	fileType := fileTypeOf(req.FileType, req.Name)
	text, err := extractText(fileType, data)
	if err != nil {
		return nil, errors.Trace("KnowledgeLogic.Add", err)
	}

	doc := &types.Knowledge{
		ID:         utils.GenUniqIDStr(),
		Name:       req.Name,
		SourceType: types.KNOWLEDGE_SOURCE_PERSONAL,
		OwnerID:    user,
		FileType:   fileType,
	}
	n, err := l.ingest(doc, text, data)
	if err != nil {
		return nil, errors.Trace("KnowledgeLogic.Add", err)
	}
	return &AddKnowledgeResult{ID: doc.ID, Name: doc.Name, ChunksCount: n}, nil
}

// AddFromCourse 课程资料入库，同一课程文件重复提交时跳过
func (l *KnowledgeLogic) AddFromCourse(req AddCourseKnowledgeRequest) (*AddKnowledgeResult, error) {
	if req.CourseID == "" || req.FileID == "" || strings.TrimSpace(req.FileName) == "" {
		return nil, errors.New("KnowledgeLogic.AddFromCourse.Args", i18n.ERROR_INVALIDARGUMENT, errors.ErrValidation)
	}

	id := types.CourseKnowledgeID(req.CourseID, req.FileID)
	exist, err := l.core.Store().KnowledgeStore().Get(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("KnowledgeLogic.AddFromCourse.KnowledgeStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if exist != nil {
		return &AddKnowledgeResult{
			ID:          exist.ID,
			Name:        exist.Name,
			ChunksCount: exist.ChunksCount,
			Skipped:     true,
			Message:     "该资源已在知识库中",
		}, nil
	}

	fileType := fileTypeOf(req.FileType, req.FileName)
	text, err := extractText(fileType, req.Content)
	if err != nil {
		return nil, errors.Trace("KnowledgeLogic.AddFromCourse", err)
	}

	doc := &types.Knowledge{
		ID:         id,
		Name:       req.FileName,
		SourceType: types.KNOWLEDGE_SOURCE_COURSE,
		OwnerID:    types.SYSTEM_USER,
		CourseID:   req.CourseID,
		CourseName: req.CourseName,
		FileType:   fileType,
	}
	n, err := l.ingest(doc, text, req.Content)
	if err != nil {
		return nil, errors.Trace("KnowledgeLogic.AddFromCourse", err)
	}
	return &AddKnowledgeResult{ID: doc.ID, Name: doc.Name, ChunksCount: n}, nil
}

// Ingest 写入已经提取好的文本，返回小块数量
func (l *KnowledgeLogic) Ingest(knowledgeID, text string, meta IngestMeta) (int, error) {
	if knowledgeID == "" {
		return 0, errors.New("KnowledgeLogic.Ingest.ID", i18n.ERROR_INVALIDARGUMENT, errors.ErrValidation)
	}
	doc := &types.Knowledge{
		ID:         knowledgeID,
		Name:       lo.If(meta.Name != "", meta.Name).Else(knowledgeID),
		SourceType: lo.If(meta.SourceType != "", meta.SourceType).Else(types.KNOWLEDGE_SOURCE_PERSONAL),
		OwnerID:    lo.If(meta.OwnerID != "", meta.OwnerID).Else(l.GetUserInfo().GetUser()),
		CourseID:   meta.CourseID,
		CourseName: meta.CourseName,
		FileType:   lo.If(meta.FileType != "", extract.NormalizeFileType(meta.FileType)).Else(extract.FILE_TYPE_TXT),
	}
	if doc.SourceType == types.KNOWLEDGE_SOURCE_COURSE {
		if !l.GetUserInfo().IsSystem() {
			return 0, errors.New("KnowledgeLogic.Ingest.Course", i18n.ERROR_PERMISSION_DENIED, nil).Code(http.StatusForbidden)
		}
		doc.OwnerID = types.SYSTEM_USER
	}

	// 同 id 重新写入会整体替换，需要对原资料有编辑权限
	exist, err := l.core.Store().KnowledgeStore().Get(l.ctx, knowledgeID)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New("KnowledgeLogic.Ingest.KnowledgeStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if exist != nil {
		if err = l.Identification(l.lazyRolerFromKnowledgeID(knowledgeID), srv.PermissionEdit); err != nil {
			return 0, errors.Trace("KnowledgeLogic.Ingest", err)
		}
	}
	return l.ingest(doc, text, nil)
}

func (l *KnowledgeLogic) ingest(doc *types.Knowledge, text string, raw []byte) (int, error) {
	sem := l.core.Semaphore().Ingest()
	if err := sem.Acquire(l.ctx); err != nil {
		return 0, errors.New("KnowledgeLogic.ingest.Semaphore.Acquire", i18n.ERROR_TOO_MANY_REQUESTS, err).Code(http.StatusTooManyRequests)
	}
	defer sem.Release()

	if len(raw) > 0 {
		l.archive(doc, raw)
	}

	n, err := l.core.RAG().Indexer.Add(l.ctx, doc, text)
	if err != nil {
		var ie *indexer.InconsistencyError
		if errors.As(err, &ie) {
			return 0, errors.New("KnowledgeLogic.ingest.Indexer.Add", i18n.ERROR_INDEX_INCONSISTENCY, ie).WithData(map[string]interface{}{
				"knowledge_id": ie.KnowledgeID,
				"rolled_back":  ie.RolledBack,
			})
		}
		return 0, errors.Trace("KnowledgeLogic.ingest.Indexer.Add", err)
	}

	doc.CreatedAt = time.Now().Unix()
	if err = l.core.Store().KnowledgeStore().Create(l.ctx, *doc); err != nil {
		// 元数据写入失败时撤回索引，避免出现无法列出也无法删除的条目
		if rmErr := l.core.RAG().Indexer.Remove(l.ctx, doc.ID); rmErr != nil {
			slog.Error("failed to remove index after knowledge create failure", slog.String("knowledge_id", doc.ID), slog.String("error", rmErr.Error()))
		}
		return 0, errors.New("KnowledgeLogic.ingest.KnowledgeStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return n, nil
}

// archive 原始文件存档失败不影响入库
func (l *KnowledgeLogic) archive(doc *types.Knowledge, raw []byte) {
	fs := l.core.FileStorage()
	if fs == nil {
		return
	}
	key := s3.GenRawFilePath(doc.ID, doc.FileType)
	if err := fs.Upload(l.ctx, key, bytes.NewReader(raw)); err != nil {
		slog.Warn("failed to archive raw file", slog.String("knowledge_id", doc.ID), slog.String("key", key), slog.String("error", err.Error()))
	}
}

type KnowledgeItem struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	SourceType  types.KnowledgeSourceType `json:"source_type"`
	CourseID    string                    `json:"course_id,omitempty"`
	CourseName  string                    `json:"course_name,omitempty"`
	FileType    string                    `json:"file_type"`
	ChunksCount int                       `json:"chunks_count"`
	CreatedAt   int64                     `json:"created_at"`
}

// List 个人资料和所选课程的资料，按创建时间倒序
func (l *KnowledgeLogic) List(courseIDs []string) ([]KnowledgeItem, error) {
	user := l.GetUserInfo().GetUser()
	if user == "" {
		return nil, errors.New("KnowledgeLogic.List.User", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized)
	}

	list, err := l.core.Store().KnowledgeStore().List(l.ctx, types.ListKnowledgeOptions{
		OwnerID:   user,
		CourseIDs: lo.Compact(courseIDs),
	})
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("KnowledgeLogic.List.KnowledgeStore.List", i18n.ERROR_INTERNAL, err)
	}
	if len(list) == 0 {
		return []KnowledgeItem{}, nil
	}

	counts, err := l.core.Store().DetailIndexStore().CountByKnowledge(l.ctx, lo.Map(list, func(k types.Knowledge, _ int) string {
		return k.ID
	}))
	if err != nil {
		return nil, errors.New("KnowledgeLogic.List.DetailIndexStore.CountByKnowledge", i18n.ERROR_INTERNAL, err)
	}

	return lo.Map(list, func(k types.Knowledge, _ int) KnowledgeItem {
		return KnowledgeItem{
			ID:          k.ID,
			Name:        k.Name,
			SourceType:  k.SourceType,
			CourseID:    k.CourseID,
			CourseName:  k.CourseName,
			FileType:    k.FileType,
			ChunksCount: counts[k.ID],
			CreatedAt:   k.CreatedAt,
		}
	}), nil
}

// Delete 课程资料只允许 system 身份删除，个人资料只允许 owner 删除，资料不存在时视为成功
func (l *KnowledgeLogic) Delete(knowledgeID string) error {
	k, err := l.core.Store().KnowledgeStore().Get(l.ctx, knowledgeID)
	if err != nil && err != sql.ErrNoRows {
		return errors.New("KnowledgeLogic.Delete.KnowledgeStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if k == nil {
		slog.Info("knowledge to delete not found", slog.String("knowledge_id", knowledgeID))
		return nil
	}

	if err = l.Identification(l.lazyRolerFromKnowledgeID(knowledgeID), srv.PermissionEdit); err != nil {
		return errors.Trace("KnowledgeLogic.Delete", err)
	}

	if err = l.Remove(knowledgeID); err != nil {
		return errors.Trace("KnowledgeLogic.Delete", err)
	}

	if fs := l.core.FileStorage(); fs != nil && k.FileType != "" {
		if err := fs.Delete(l.ctx, s3.GenRawFilePath(k.ID, k.FileType)); err != nil {
			slog.Warn("failed to delete raw file", slog.String("knowledge_id", k.ID), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Remove 删除索引和元数据，不做权限校验
func (l *KnowledgeLogic) Remove(knowledgeID string) error {
	if err := l.core.RAG().Indexer.Remove(l.ctx, knowledgeID); err != nil {
		return errors.Trace("KnowledgeLogic.Remove", err)
	}
	if err := l.core.Store().KnowledgeStore().Delete(l.ctx, knowledgeID); err != nil {
		return errors.New("KnowledgeLogic.Remove.KnowledgeStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

func (l *KnowledgeLogic) Stats() (*types.KnowledgeStats, error) {
	stores := l.core.Store()
	detail, err := stores.DetailIndexStore().Total(l.ctx)
	if err != nil {
		return nil, errors.New("KnowledgeLogic.Stats.DetailIndexStore.Total", i18n.ERROR_INTERNAL, err)
	}
	summary, err := stores.SummaryIndexStore().Total(l.ctx)
	if err != nil {
		return nil, errors.New("KnowledgeLogic.Stats.SummaryIndexStore.Total", i18n.ERROR_INTERNAL, err)
	}
	total, err := stores.KnowledgeStore().Total(l.ctx, types.ListKnowledgeOptions{})
	if err != nil {
		return nil, errors.New("KnowledgeLogic.Stats.KnowledgeStore.Total", i18n.ERROR_INTERNAL, err)
	}

	return &types.KnowledgeStats{
		TotalDetailDocs:  detail,
		TotalSummaryDocs: summary,
		TotalKnowledge:   total,
		BM25Enabled:      l.core.RAG().Keywords.Enabled(),
		Version:          core.VERSION,
		IndexStrategy:    INDEX_STRATEGY_DUAL,
	}, nil
}
