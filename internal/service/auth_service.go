package service

import (
	"context"
	"errors"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginResult 登录成功后返回的令牌与用户信息
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Guard    LoginGuard
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, guard LoginGuard) *AuthService {
	if guard == nil {
		guard = NopLoginGuard{}
	}
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Guard:    guard,
	}
}

// Login 用户不存在与密码错误返回同一错误；连续失败过多时暂时锁定
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	locked, err := s.Guard.Locked(ctx, username)
	if err != nil {
		logger.Log.Warn("login guard unavailable", zap.Error(err))
	} else if locked {
		return nil, util.NewError(util.ErrTooManyAttempts, "too many failed attempts, try again later")
	}

	user, err := s.UserRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, username)
			return nil, util.NewError(util.ErrUnauthenticated, "invalid credentials")
		}
		return nil, repoError(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, username)
		return nil, util.NewError(util.ErrUnauthenticated, "invalid credentials")
	}
	if err := s.Guard.Reset(ctx, username); err != nil {
		logger.Log.Warn("login guard reset failed", zap.Error(err))
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, util.Persistence(err, "failed to issue token")
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if err := s.Guard.RecordFailure(ctx, username); err != nil {
		logger.Log.Warn("login guard record failed", zap.Error(err))
	}
}
