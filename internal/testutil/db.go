// Package testutil 测试用的内存数据库与数据构造
package testutil

import (
	"fmt"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/pkg/database"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB 每个测试独立的内存 SQLite，单连接保证事务串行
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn), false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser 密码统一为 "password"
func CreateUser(t *testing.T, db *gorm.DB, username string, role model.UserRole, createdBy *uint, organization string) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  string(hashed),
		FullName:      strings.ToUpper(username[:1]) + username[1:],
		Role:          role,
		CreatedBy:     createdBy,
		Organization:  organization,
		IsActive:      true,
		SecurityLevel: model.SecurityBeginner,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func SingleChoice(text string, correct int, points int) model.Question {
	return model.Question{
		Text:          text,
		Type:          model.SingleChoice,
		Options:       model.OptionList{"a", "b", "c", "d"},
		CorrectAnswer: model.IndexSet{correct},
		Explanation:   "because " + text,
		Points:        points,
	}
}

func MultipleChoice(text string, correct []int, points int) model.Question {
	return model.Question{
		Text:          text,
		Type:          model.MultipleChoice,
		Options:       model.OptionList{"a", "b", "c", "d"},
		CorrectAnswer: model.IndexSet(correct),
		Explanation:   "because " + text,
		Points:        points,
	}
}

// CreateQuiz 题目按传入顺序编号
func CreateQuiz(t *testing.T, db *gorm.DB, title string, active bool, questions ...model.Question) *model.Quiz {
	t.Helper()

	for i := range questions {
		questions[i].Position = i
	}
	quiz := &model.Quiz{
		Title:      title,
		Difficulty: model.DifficultyBeginner,
		IsActive:   active,
		Questions:  questions,
	}
	require.NoError(t, db.Create(quiz).Error)
	return quiz
}
