package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/app/response"
	"github.com/quka-ai/airag/pkg/utils"
)

func (s *HttpSrv) Chat(c *gin.Context) {
	var req v1.AskRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewChatLogic(c, s.Core).Ask(req.Message, req.KnowledgeIDs, req.History)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}
