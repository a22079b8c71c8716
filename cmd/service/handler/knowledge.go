package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/app/response"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/utils"
)

// MAX_UPLOAD_SIZE 单个文件上限
const MAX_UPLOAD_SIZE = 50 << 20

func (s *HttpSrv) AddKnowledge(c *gin.Context) {
	var req v1.AddKnowledgeRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewKnowledgeLogic(c, s.Core).Add(req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

// AddCourseKnowledge multipart 表单，文件字段为 file_content
func (s *HttpSrv) AddCourseKnowledge(c *gin.Context) {
	var req v1.AddCourseKnowledgeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.APIError(c, errors.New("AddCourseKnowledge.ShouldBind", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("%w: %w", errors.ErrValidation, err)))
		return
	}

	file, err := c.FormFile("file_content")
	if err != nil {
		response.APIError(c, errors.New("AddCourseKnowledge.FormFile", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("%w: %w", errors.ErrValidation, err)))
		return
	}
	if file.Size > MAX_UPLOAD_SIZE {
		response.APIError(c, errors.New("AddCourseKnowledge.FileSize", i18n.ERROR_INVALIDARGUMENT, errors.ErrValidation).Code(http.StatusRequestEntityTooLarge))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.APIError(c, errors.New("AddCourseKnowledge.Open", i18n.ERROR_INTERNAL, err))
		return
	}
	defer f.Close()

	if req.Content, err = io.ReadAll(f); err != nil {
		response.APIError(c, errors.New("AddCourseKnowledge.ReadAll", i18n.ERROR_INTERNAL, err))
		return
	}

	res, err := v1.NewKnowledgeLogic(c, s.Core).AddFromCourse(req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

type ListKnowledgeRequest struct {
	CourseIDs []string `json:"course_ids"`
}

type ListKnowledgeResponse struct {
	Items []v1.KnowledgeItem `json:"items"`
	Total int                `json:"total"`
}

func (s *HttpSrv) ListKnowledge(c *gin.Context) {
	var req ListKnowledgeRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewKnowledgeLogic(c, s.Core).List(req.CourseIDs)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ListKnowledgeResponse{
		Items: list,
		Total: len(list),
	})
}

func (s *HttpSrv) DeleteKnowledge(c *gin.Context) {
	// 课程资料 id 可能包含 "/"，路由使用通配参数
	id := strings.TrimPrefix(c.Param("id"), "/")
	if id == "" {
		response.APIError(c, errors.New("DeleteKnowledge.ID", i18n.ERROR_INVALIDARGUMENT, errors.ErrValidation))
		return
	}
	if err := v1.NewKnowledgeLogic(c, s.Core).Delete(id); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type IngestRequest struct {
	ID   string `json:"id" binding:"required"`
	Text string `json:"text" binding:"required"`
	v1.IngestMeta
}

type IngestResponse struct {
	ID          string `json:"id"`
	ChunksCount int    `json:"chunks_count"`
}

func (s *HttpSrv) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	n, err := v1.NewKnowledgeLogic(c, s.Core).Ingest(req.ID, req.Text, req.IngestMeta)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, IngestResponse{ID: req.ID, ChunksCount: n})
}

func (s *HttpSrv) Stats(c *gin.Context) {
	stats, err := v1.NewKnowledgeLogic(c, s.Core).Stats()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, stats)
}
