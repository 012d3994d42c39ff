package service

import (
	"errors"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// CreateUserReq 创建用户请求体
// swagger:model CreateUserReq
type CreateUserReq struct {
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	FullName     string         `json:"full_name"`
	Role         model.UserRole `json:"role"`
	Organization string         `json:"organization"`
}

// UpdateProfileReq 个人资料请求体
// swagger:model UpdateProfileReq
type UpdateProfileReq struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	SecurityLevel string `json:"security_level"`
}

// ChangePasswordReq 修改密码请求体
// swagger:model ChangePasswordReq
type ChangePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo *repository.UserRepository
	Access   *AccessControl
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository, access *AccessControl) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Access:   access,
	}
}

func validSecurityLevel(level string) bool {
	switch level {
	case model.SecurityBeginner, model.SecurityIntermediate, model.SecurityAdvanced, model.SecurityExpert:
		return true
	}
	return false
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return util.Validationf("invalid email %q", email)
	}
	return nil
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", util.Persistence(err, "failed to hash password")
	}
	return string(hashed), nil
}

// ListUsers 管理员看到除自己外的全部活跃用户，经理只看到自己创建的受测者
func (s *UserService) ListUsers(caller model.CallerContext) ([]repository.UserListRow, error) {
	if err := s.Access.Require(caller, PermUsersList); err != nil {
		return nil, err
	}

	var (
		rows []repository.UserListRow
		err  error
	)
	if caller.IsAdmin() {
		rows, err = s.UserRepo.ListActiveExcept(caller.UserID)
	} else {
		rows, err = s.UserRepo.ListCreatedBy(caller.UserID, model.TestSubject)
	}
	if err != nil {
		return nil, repoError(err, "users")
	}
	return rows, nil
}

func (s *UserService) CreateUser(caller model.CallerContext, req CreateUserReq) (*model.User, error) {
	role, organization, err := s.Access.ResolveCreateRole(caller, req.Role, strings.TrimSpace(req.Organization))
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" {
		return nil, util.Validationf("username is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, util.Validationf("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	creator := caller.UserID
	user := &model.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hashed,
		FullName:      strings.TrimSpace(req.FullName),
		Role:          role,
		CreatedBy:     &creator,
		Organization:  organization,
		IsActive:      true,
		SecurityLevel: model.SecurityBeginner,
	}
	if err := s.UserRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.Duplicatef("username or email already exists")
		}
		return nil, repoError(err, "user")
	}

	logger.Log.Info("user created",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(role)),
		zap.Uint("created_by", caller.UserID))
	return user, nil
}

// DeleteUser 物理删除；不能删除自己，经理只能删除自己创建的受测者
func (s *UserService) DeleteUser(caller model.CallerContext, targetID uint) error {
	target, err := s.UserRepo.FindByID(targetID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return repoError(err, "user")
	}
	if err != nil {
		target = nil
	}

	if err := s.Access.CheckDeleteUser(caller, targetID, target); err != nil {
		return err
	}
	if err := s.UserRepo.Delete(targetID, caller.UserID); err != nil {
		return repoError(err, "user")
	}

	logger.Log.Info("user deleted",
		zap.Uint("user_id", targetID),
		zap.Uint("deleted_by", caller.UserID))
	return nil
}

// GetOrganizationUsers 某组织下的活跃受测者
func (s *UserService) GetOrganizationUsers(caller model.CallerContext, organization string) ([]repository.UserListRow, error) {
	if err := s.Access.Require(caller, PermOrgsView); err != nil {
		return nil, err
	}
	rows, err := s.UserRepo.ListByOrganization(organization, model.TestSubject)
	if err != nil {
		return nil, repoError(err, "users")
	}
	return rows, nil
}

func (s *UserService) ListOrganizations(caller model.CallerContext) ([]string, error) {
	if err := s.Access.Require(caller, PermOrgsView); err != nil {
		return nil, err
	}
	orgs, err := s.UserRepo.ListOrganizations()
	if err != nil {
		return nil, repoError(err, "organizations")
	}
	if orgs == nil {
		orgs = []string{}
	}
	return orgs, nil
}

// GetUserByID 根据ID获取用户信息
func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, repoError(err, "user")
	}
	return user, nil
}

// UpdateProfile 安全等级留空时保持不变
func (s *UserService) UpdateProfile(caller model.CallerContext, req UpdateProfileReq) (*model.User, error) {
	if err := s.Access.Require(caller, PermProfileEdit); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(caller.UserID)
	if err != nil {
		return nil, repoError(err, "user")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = user.Email
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	level := req.SecurityLevel
	if level == "" {
		level = user.SecurityLevel
	}
	if !validSecurityLevel(level) {
		return nil, util.Validationf("unknown security level %q", level)
	}

	fullName := strings.TrimSpace(req.FullName)
	if err := s.UserRepo.UpdateProfile(caller.UserID, fullName, email, level); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.Duplicatef("email already in use")
		}
		return nil, repoError(err, "user")
	}

	user.FullName = fullName
	user.Email = email
	user.SecurityLevel = level
	return user, nil
}

// ChangePassword 先校验当前密码
func (s *UserService) ChangePassword(caller model.CallerContext, req ChangePasswordReq) error {
	if err := s.Access.Require(caller, PermProfileEdit); err != nil {
		return err
	}
	user, err := s.UserRepo.FindByID(caller.UserID)
	if err != nil {
		return repoError(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return util.Validationf("current password is incorrect")
	}
	if len(req.NewPassword) < minPasswordLength {
		return util.Validationf("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return repoError(s.UserRepo.UpdatePassword(caller.UserID, hashed), "user")
}
