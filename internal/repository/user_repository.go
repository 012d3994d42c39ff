package repository

import (
	"phish_trainer_backend/internal/model"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// UserListRow 用户列表行，附带创建者用户名
type UserListRow struct {
	model.User
	CreatedByName *string `json:"createdByName"`
}

func (r *UserRepository) Create(user *model.User) error {
	return errors.Wrap(r.DB.Create(user).Error, "create user")
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, errors.Wrapf(err, "find user %d", id)
	}
	return &user, nil
}

func (r *UserRepository) FindActiveByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("id = ? AND is_active = ?", id, true).First(&user).Error; err != nil {
		return nil, errors.Wrapf(err, "find active user %d", id)
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("username = ? AND is_active = ?", username, true).First(&user).Error; err != nil {
		return nil, errors.Wrapf(err, "find user %q", username)
	}
	return &user, nil
}

func (r *UserRepository) IsActive(userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("id = ? AND is_active = ?", userID, true).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check user active")
	}
	return count > 0, nil
}

func (r *UserRepository) listQuery() *gorm.DB {
	return r.DB.Table("users u").
		Select("u.*, creator.username as created_by_name").
		Joins("LEFT JOIN users creator ON u.created_by = creator.id").
		Where("u.is_active = ?", true)
}

// ListActiveExcept 管理员视角：除自己之外的全部活跃用户
func (r *UserRepository) ListActiveExcept(excludeID uint) ([]UserListRow, error) {
	var rows []UserListRow
	err := r.listQuery().
		Where("u.id <> ?", excludeID).
		Order("u.role, u.username").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "list users")
}

// ListCreatedBy 经理视角：自己创建的受测者
func (r *UserRepository) ListCreatedBy(creatorID uint, role model.UserRole) ([]UserListRow, error) {
	var rows []UserListRow
	err := r.listQuery().
		Where("u.created_by = ? AND u.role = ?", creatorID, role).
		Order("u.username").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "list created users")
}

func (r *UserRepository) ListByOrganization(organization string, role model.UserRole) ([]UserListRow, error) {
	var rows []UserListRow
	err := r.listQuery().
		Where("u.organization = ? AND u.role = ?", organization, role).
		Order("u.username").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "list organization users")
}

func (r *UserRepository) ListOrganizations() ([]string, error) {
	var orgs []string
	err := r.DB.Model(&model.User{}).
		Distinct("organization").
		Where("organization IS NOT NULL AND organization <> '' AND is_active = ?", true).
		Order("organization").
		Pluck("organization", &orgs).Error
	return orgs, errors.Wrap(err, "list organizations")
}

func (r *UserRepository) UpdateProfile(userID uint, fullName, email, securityLevel string) error {
	res := r.DB.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"full_name":      fullName,
		"email":          email,
		"security_level": securityLevel,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update profile")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "update profile %d", userID)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(userID uint, hash string) error {
	err := r.DB.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
	return errors.Wrap(err, "update password")
}

func (r *UserRepository) UpdateLastLogin(userID uint, at time.Time) error {
	err := r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_login", at).Error
	return errors.Wrap(err, "update last login")
}

// Delete 物理删除用户及其进度缓存，答题记录作为历史保留；
// 该用户创建的账号和试卷转交给 inheritorID，保证 created_by 始终指向存在的用户
func (r *UserRepository) Delete(userID, inheritorID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Progress{}).Error; err != nil {
			return errors.Wrap(err, "delete user progress")
		}
		err := tx.Model(&model.User{}).Where("created_by = ?", userID).Update("created_by", inheritorID).Error
		if err != nil {
			return errors.Wrap(err, "reassign created users")
		}
		err = tx.Model(&model.Quiz{}).Where("created_by = ?", userID).Update("created_by", inheritorID).Error
		if err != nil {
			return errors.Wrap(err, "reassign created quizzes")
		}
		res := tx.Delete(&model.User{}, userID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete user")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "delete user %d", userID)
		}
		return nil
	})
}
