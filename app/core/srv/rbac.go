package srv

import (
	"net/http"

	"github.com/mikespook/gorbac/v2"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
)

const (
	// 定义角色ID
	RoleAdmin  = "role-admin"
	RoleEditor = "role-editor"
	RoleViewer = "role-viewer"

	// 定义权限ID
	PermissionAdmin = "admin"
	PermissionEdit  = "edit"
	PermissionView  = "view"
)

func SetupRBACSrv() *RBACSrv {
	rbac := gorbac.New()

	pAdmin := gorbac.NewStdPermission(PermissionAdmin)
	pEdit := gorbac.NewStdPermission(PermissionEdit)
	pView := gorbac.NewStdPermission(PermissionView)

	roleAdmin := gorbac.NewStdRole(RoleAdmin)
	roleAdmin.Assign(pAdmin)

	roleEditor := gorbac.NewStdRole(RoleEditor)
	roleEditor.Assign(pEdit)

	roleViewer := gorbac.NewStdRole(RoleViewer)
	roleViewer.Assign(pView)

	rbac.Add(roleAdmin)
	rbac.Add(roleEditor)
	rbac.Add(roleViewer)

	rbac.SetParent(RoleEditor, RoleViewer) // 编辑者继承预览者的权限
	rbac.SetParent(RoleAdmin, RoleEditor)  // 管理者继承编辑者的权限

	return &RBACSrv{
		rbac: rbac,
	}
}

type RBACSrv struct {
	rbac *gorbac.RBAC
}

// CheckPermission 检查角色是否有某权限
func (a *RBACSrv) CheckPermission(roleID, permissionID string) bool {
	return a.rbac.IsGranted(roleID, gorbac.NewStdPermission(permissionID), nil)
}

type RoleObject interface {
	GetUser() (string, error)
}

type LazyRoler struct {
	f      func() (string, error)
	userID string
}

func (s *LazyRoler) GetUser() (string, error) {
	if s.userID == "" {
		var err error
		if s.userID, err = s.f(); err != nil {
			return "", err
		}
	}
	return s.userID, nil
}

func NewRolerWithLazyload(f func() (string, error)) *LazyRoler {
	return &LazyRoler{
		f: f,
	}
}

type RoleUser interface {
	GetRole() string
	GetUser() string
}

// Check 角色拥有权限时直接放行，否则要求资源属于该用户
func (a *RBACSrv) Check(user RoleUser, obj RoleObject, permissionID string) *errors.CustomizedError {
	if a.CheckPermission(user.GetRole(), permissionID) {
		return nil
	}
	resourceUser, err := obj.GetUser()
	if err != nil {
		return errors.Trace("RBACSrv.Check", err)
	}
	if resourceUser == "" || user.GetUser() != resourceUser {
		return errors.New("RBACSrv.Check.ClientUser", i18n.ERROR_PERMISSION_DENIED, nil).Code(http.StatusForbidden)
	}
	return nil
}
