package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/response"
)

type HealthResponse struct {
	Status         string                 `json:"status"`
	Version        string                 `json:"version"`
	KeywordEnabled bool                   `json:"bm25_enabled"`
	AI             map[string]interface{} `json:"ai"`
}

func (s *HttpSrv) Health(c *gin.Context) {
	response.APISuccess(c, HealthResponse{
		Status:         "ok",
		Version:        core.VERSION,
		KeywordEnabled: s.Core.RAG().Keywords.Enabled(),
		AI:             s.Core.GetAIStatus(),
	})
}
