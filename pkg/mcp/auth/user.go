package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

// ValidateRequest 从请求中取调用方身份，支持两种方式（优先级从高到低）：
// 1. HTTP Header: X-User-Id, X-User-Role
// 2. URL 参数: ?user_id=xxx&role=xxx
func ValidateRequest(c *gin.Context) (v1.UserClaims, error) {
	claims := v1.UserClaims{
		User: strings.TrimSpace(c.GetHeader("X-User-Id")),
		Role: strings.TrimSpace(c.GetHeader("X-User-Role")),
	}
	if claims.User == "" {
		claims.User = strings.TrimSpace(c.Query("user_id"))
		claims.Role = strings.TrimSpace(c.Query("role"))
	}
	if claims.User == "" {
		return claims, fmt.Errorf("missing user id (provide via X-User-Id header or user_id param)")
	}
	return claims, nil
}

// SetUserContext 工具处理器通过 logic 层的 InjectUserClaims 读取
func SetUserContext(ctx context.Context, claims v1.UserClaims) context.Context {
	return v1.WithUserClaims(ctx, claims)
}

func GetUserContext(ctx context.Context) (v1.UserClaims, bool) {
	return v1.InjectUserClaims(ctx)
}

// ClientLanguage 与 HTTP API 一致，仅区分 zh-CN 和 en
func ClientLanguage(c *gin.Context) string {
	res := utils.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	if len(res) > 0 && strings.Contains(res[0].Tag, "zh") {
		return types.LANGUAGE_CN_KEY
	}
	return types.LANGUAGE_EN_KEY
}
