package v1

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
)

type _userInfo struct {
	ctx  context.Context
	core *core.Core
	u    *UserClaims
}

func (u *_userInfo) GetUserInfo() UserClaims {
	return *u.u
}

func (u *_userInfo) Identification(roler srv.RoleObject, permission string) error {
	if err := u.core.Srv().RBAC().Check(u.GetUserInfo(), roler, permission); err != nil {
		return err
	}
	return nil
}

// 通过 knowledge id 获取资料的 owner，课程资料的 owner 为 system
func (u *_userInfo) lazyRolerFromKnowledgeID(id string) *srv.LazyRoler {
	return srv.NewRolerWithLazyload(func() (string, error) {
		k, err := u.core.Store().KnowledgeStore().Get(u.ctx, id)
		if err != nil && err != sql.ErrNoRows {
			slog.Error("Failed to get owner by knowledge id", slog.String("knowledge_id", id), slog.String("error", err.Error()))
			return "", errors.New("_userInfo.RolerWithLazyload", i18n.ERROR_INTERNAL, err)
		}
		if k == nil {
			return "", nil
		}
		return k.OwnerID, nil
	})
}

func SetupUserInfo(ctx context.Context, core *core.Core) UserInfo {
	userInfo, ok := InjectUserClaims(ctx)
	if !ok {
		slog.Error("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = UserClaims{}
	}
	return &_userInfo{
		ctx:  ctx,
		u:    &userInfo,
		core: core,
	}
}

type UserInfo interface {
	GetUserInfo() UserClaims
	Identification(roler srv.RoleObject, permission string) error
	lazyRolerFromKnowledgeID(id string) *srv.LazyRoler
}
