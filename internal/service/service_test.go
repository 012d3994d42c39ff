package service

import (
	"testing"
	"time"

	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	users    *UserService
	quizzes  *QuizService
	progress *ProgressService
	auth     *AuthService
	archive  *ReportArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	}

	access := NewAccessControl(nil)
	userRepo := repository.NewUserRepository(db)
	archive := NewReportArchive(cfg)
	quizService := NewQuizService(repository.NewQuizRepository(db), repository.NopQuizCache{}, access, archive)

	return &fixture{
		db:       db,
		users:    NewUserService(userRepo, access),
		quizzes:  quizService,
		progress: NewProgressService(repository.NewProgressRepository(db), userRepo, quizService, access, nil),
		auth:     NewAuthService(userRepo, cfg, nil),
		archive:  archive,
	}
}

func callerOf(u *model.User) model.CallerContext {
	return model.CallerContext{UserID: u.ID, Role: u.Role, Organization: u.Organization}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
