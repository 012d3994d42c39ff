package controller

import (
	"phish_trainer_backend/internal/service"
	"phish_trainer_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 用户列表
// @Description 管理员返回除自己外的全部活跃用户；经理只返回自己创建的受测者
// @Tags 用户管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.UserListRow}
// @Failure 403 {object} util.Response
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	users, err := c.UserService.ListUsers(caller)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// CreateUser godoc
// @Summary 创建用户
// @Description 经理只能创建受测者，组织强制为经理所在组织
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateUserReq true "用户信息"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response "用户名或邮箱已存在"
// @Router /api/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.CreateUserReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.CreateUser(caller, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// DeleteUser godoc
// @Summary 删除用户
// @Tags 用户管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "权限不足或删除自己"
// @Failure 404 {object} util.Response
// @Router /api/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.UserService.DeleteUser(caller, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "user deleted", nil)
}

// ListOrganizations godoc
// @Summary 组织列表
// @Tags 用户管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/organizations [get]
func (c *UserController) ListOrganizations(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	orgs, err := c.UserService.ListOrganizations(caller)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, orgs)
}

// GetOrganizationUsers godoc
// @Summary 组织下的受测者
// @Tags 用户管理
// @Produce json
// @Security ApiKeyAuth
// @Param org path string true "组织名称"
// @Success 200 {object} util.Response{data=[]repository.UserListRow}
// @Router /api/organizations/{org}/users [get]
func (c *UserController) GetOrganizationUsers(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	users, err := c.UserService.GetOrganizationUsers(caller, ctx.Param("org"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.UpdateProfileReq true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "邮箱已被占用"
// @Router /api/user/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.UpdateProfileReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(caller, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ChangePassword godoc
// @Summary 修改密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ChangePasswordReq true "当前密码与新密码"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "当前密码错误"
// @Router /api/user/password [post]
func (c *UserController) ChangePassword(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.ChangePasswordReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.ChangePassword(caller, req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "password changed", nil)
}
