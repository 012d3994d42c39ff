package service

import (
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/util"
	"strings"
)

type Permission string

const (
	PermUsersList      Permission = "users:list"
	PermUsersCreate    Permission = "users:create"
	PermUsersDelete    Permission = "users:delete"
	PermOrgsView       Permission = "organizations:view"
	PermQuizzesManage  Permission = "quizzes:manage"
	PermQuizzesStats   Permission = "quizzes:stats"
	PermQuizzesTake    Permission = "quizzes:take"
	PermProfileEdit    Permission = "profile:edit"
	PermProgressViewMe Permission = "progress:view-own"
)

// RolePermissions 角色权限表，管理员拥有全部权限
var RolePermissions = map[model.UserRole][]Permission{
	model.Admin: {"*"},
	model.Manager: {
		PermUsersList,
		PermUsersCreate,
		PermUsersDelete,
		PermQuizzesTake,
		PermProfileEdit,
		PermProgressViewMe,
	},
	model.TestSubject: {
		PermQuizzesTake,
		PermProfileEdit,
		PermProgressViewMe,
	},
}

type AccessControl struct {
	RolePermissions map[model.UserRole][]Permission
}

func NewAccessControl(rp map[model.UserRole][]Permission) *AccessControl {
	if rp == nil {
		rp = RolePermissions
	}
	return &AccessControl{RolePermissions: rp}
}

func (a *AccessControl) Has(role model.UserRole, perm Permission) bool {
	for _, p := range a.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

// Require 权限不足时返回 ErrInsufficientPrivilege
func (a *AccessControl) Require(caller model.CallerContext, perm Permission) error {
	if !a.Has(caller.Role, perm) {
		return util.Forbiddenf("insufficient privilege for %s", perm)
	}
	return nil
}

func matchPerm(pattern, perm Permission) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	p := string(pattern)
	if strings.HasSuffix(p, "*") {
		return strings.HasPrefix(string(perm), strings.TrimSuffix(p, "*"))
	}
	return false
}

// ResolveCreateRole 经理只能创建受测者，且组织强制继承自经理本人
func (a *AccessControl) ResolveCreateRole(caller model.CallerContext, requested model.UserRole, organization string) (model.UserRole, string, error) {
	if err := a.Require(caller, PermUsersCreate); err != nil {
		return "", "", err
	}
	if requested == "" {
		requested = model.TestSubject
	}
	if !requested.Valid() {
		return "", "", util.Validationf("unknown role %q", requested)
	}

	switch caller.Role {
	case model.Admin:
		return requested, organization, nil
	case model.Manager:
		if requested != model.TestSubject {
			return "", "", util.Forbiddenf("managers can only create test subjects")
		}
		return model.TestSubject, caller.Organization, nil
	}
	return "", "", util.Forbiddenf("insufficient privilege to create users")
}

// CheckDeleteUser target 为 nil 表示目标用户不存在
func (a *AccessControl) CheckDeleteUser(caller model.CallerContext, targetID uint, target *model.User) error {
	if targetID == caller.UserID {
		return util.NewError(util.ErrSelfDeletion, "cannot delete your own account")
	}
	if err := a.Require(caller, PermUsersDelete); err != nil {
		return err
	}

	if caller.Role == model.Admin {
		if target == nil {
			return util.NotFoundf("user %d not found", targetID)
		}
		return nil
	}

	// 经理：目标必须存在、由自己创建且为受测者
	if target == nil || target.CreatedBy == nil || *target.CreatedBy != caller.UserID || target.Role != model.TestSubject {
		return util.Forbiddenf("insufficient privilege to delete this user")
	}
	return nil
}
