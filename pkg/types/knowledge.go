package types

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

type KnowledgeSourceType string

const (
	KNOWLEDGE_SOURCE_PERSONAL KnowledgeSourceType = "personal"
	KNOWLEDGE_SOURCE_COURSE   KnowledgeSourceType = "course"
)

// Knowledge 一份已入库的资料
type Knowledge struct {
	ID           string              `json:"id" db:"id"`
	Name         string              `json:"name" db:"name"`
	SourceType   KnowledgeSourceType `json:"source_type" db:"source_type"`
	OwnerID      string              `json:"owner_id" db:"owner_id"`
	CourseID     string              `json:"course_id,omitempty" db:"course_id"`
	CourseName   string              `json:"course_name,omitempty" db:"course_name"`
	FileType     string              `json:"file_type" db:"file_type"`
	ChunksCount  int                 `json:"chunks_count" db:"chunks_count"`
	SummaryCount int                 `json:"summary_count" db:"summary_count"`
	CreatedAt    int64               `json:"created_at" db:"created_at"`
}

// CourseKnowledgeID 课程资源的 id 由课程和文件确定，重复入库时据此跳过
func CourseKnowledgeID(courseID, fileID string) string {
	return fmt.Sprintf("course_%s_%s", courseID, fileID)
}

// ListKnowledgeOptions 可见性规则：个人资料仅 owner 可见，课程资料按 course_id 可见
type ListKnowledgeOptions struct {
	OwnerID   string
	CourseIDs []string
	IDs       []string
}

func (opts ListKnowledgeOptions) Apply(query *sq.SelectBuilder) {
	if len(opts.IDs) > 0 {
		*query = query.Where(sq.Eq{"id": opts.IDs})
	}

	visible := sq.Or{}
	if opts.OwnerID != "" {
		visible = append(visible, sq.Eq{"source_type": KNOWLEDGE_SOURCE_PERSONAL, "owner_id": opts.OwnerID})
	}
	if len(opts.CourseIDs) > 0 {
		visible = append(visible, sq.Eq{"source_type": KNOWLEDGE_SOURCE_COURSE, "course_id": opts.CourseIDs})
	}
	if len(visible) > 0 {
		*query = query.Where(visible)
	}
}

// Visible 与 Apply 的 sql 条件保持一致，供内存实现使用
func (opts ListKnowledgeOptions) Visible(k Knowledge) bool {
	if len(opts.IDs) > 0 && !lo.Contains(opts.IDs, k.ID) {
		return false
	}
	if opts.OwnerID == "" && len(opts.CourseIDs) == 0 {
		return true
	}
	switch k.SourceType {
	case KNOWLEDGE_SOURCE_PERSONAL:
		return opts.OwnerID != "" && k.OwnerID == opts.OwnerID
	case KNOWLEDGE_SOURCE_COURSE:
		return lo.Contains(opts.CourseIDs, k.CourseID)
	}
	return false
}

type KnowledgeStats struct {
	TotalDetailDocs  int64  `json:"total_detail_docs"`
	TotalSummaryDocs int64  `json:"total_summary_docs"`
	TotalKnowledge   int64  `json:"total_knowledge"`
	BM25Enabled      bool   `json:"bm25_enabled"`
	Version          string `json:"version"`
	IndexStrategy    string `json:"index_strategy"`
}

// SYSTEM_USER 课程资料的 owner，也是允许管理课程资料的调用方身份
const SYSTEM_USER = "system"

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)
