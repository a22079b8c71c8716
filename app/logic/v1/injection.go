package v1

import (
	"context"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/pkg/types"
)

const (
	USER_CONTEXT_KEY = "__airag.user"
	LANGUAGE_KEY     = "__airag.accept_language"
)

// UserClaims 调用方通过 x-user-id / x-user-role 传入的身份
type UserClaims struct {
	User string
	Role string
}

func (c UserClaims) GetUser() string {
	return c.User
}

// GetRole system 身份(角色或用户 id)映射为管理员，其余为普通用户
func (c UserClaims) GetRole() string {
	if c.IsSystem() {
		return srv.RoleAdmin
	}
	return srv.RoleViewer
}

func (c UserClaims) IsSystem() bool {
	return c.Role == types.SYSTEM_USER || c.User == types.SYSTEM_USER
}

func WithUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, USER_CONTEXT_KEY, claims)
}

// InjectUserClaims get user claims from context
func InjectUserClaims(ctx context.Context) (UserClaims, bool) {
	val, ok := ctx.Value(USER_CONTEXT_KEY).(UserClaims)
	return val, ok
}

func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, LANGUAGE_KEY, lang)
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}

func GetContentByClientLanguage[T any](c context.Context, enRes T, cnRes T) T {
	clientLang, _ := InjectLanguage(c)
	return lo.If(clientLang == types.LANGUAGE_EN_KEY, enRes).Else(cnRes)
}
