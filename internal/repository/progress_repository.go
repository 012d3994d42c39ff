package repository

import (
	"context"
	"phish_trainer_backend/internal/model"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// LedgerEntry 一次记账后的最新状态
type LedgerEntry struct {
	Attempt  model.Attempt
	Progress model.Progress
	User     model.User
}

// HistoryRow 用户答题历史，附带试卷标题与难度
type HistoryRow struct {
	model.Attempt
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

// QuizStatistics 单张试卷的统计
type QuizStatistics struct {
	QuizID         uint    `json:"quizId"`
	TotalAttempts  int64   `json:"totalAttempts"`
	AvgScore       float64 `json:"avgScore"`
	MaxScore       int     `json:"maxScore"`
	MinScore       int     `json:"minScore"`
	CompletedUsers int64   `json:"completedUsers"`
	CompletionRate float64 `json:"completionRate"`
}

// TrainingProgress 已完成数 * 100 / 启用试卷数，整数除法向零取整。
// 分子只统计仍处于启用状态的已完成试卷，与分母口径一致，结果始终在 0..100 之间
func TrainingProgress(completed, active int64) int {
	if active <= 0 {
		return 0
	}
	return int(completed * 100 / active)
}

// RecordAttempt 在一个事务内写入答题记录、更新进度并重算用户汇总。
// 先锁定用户行，保证同一用户的并发提交串行执行。
func (r *ProgressRepository) RecordAttempt(ctx context.Context, attempt *model.Attempt) (*LedgerEntry, error) {
	var entry LedgerEntry
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockQuery := tx
		if tx.Dialector.Name() != "sqlite" {
			lockQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var user model.User
		if err := lockQuery.First(&user, attempt.UserID).Error; err != nil {
			return errors.Wrapf(err, "lock user %d", attempt.UserID)
		}

		if attempt.CompletedAt.IsZero() {
			attempt.CompletedAt = time.Now()
		}
		if err := tx.Create(attempt).Error; err != nil {
			return errors.Wrap(err, "insert attempt")
		}

		completedAt := attempt.CompletedAt
		progress := model.Progress{
			UserID:      attempt.UserID,
			QuizID:      attempt.QuizID,
			Status:      model.StatusCompleted,
			Score:       attempt.Score,
			CompletedAt: &completedAt,
			Attempts:    1,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "quiz_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":       model.StatusCompleted,
				"score":        attempt.Score,
				"completed_at": completedAt,
				"attempts":     gorm.Expr("attempts + 1"),
			}),
		}).Create(&progress).Error
		if err != nil {
			return errors.Wrap(err, "upsert progress")
		}

		completed, active, err := countCompletion(tx, attempt.UserID)
		if err != nil {
			return err
		}
		err = tx.Model(&model.User{}).Where("id = ?", attempt.UserID).Updates(map[string]interface{}{
			"training_progress":        TrainingProgress(completed, active),
			"phishing_tests_completed": gorm.Expr("phishing_tests_completed + 1"),
		}).Error
		if err != nil {
			return errors.Wrap(err, "update user summary")
		}

		if err := tx.Where("user_id = ? AND quiz_id = ?", attempt.UserID, attempt.QuizID).First(&entry.Progress).Error; err != nil {
			return errors.Wrap(err, "reload progress")
		}
		if err := tx.First(&entry.User, attempt.UserID).Error; err != nil {
			return errors.Wrap(err, "reload user")
		}
		entry.Attempt = *attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// countCompletion 只统计仍处于启用状态的试卷，保证百分比不超过 100
func countCompletion(tx *gorm.DB, userID uint) (completed int64, active int64, err error) {
	err = tx.Table("user_progress up").
		Joins("JOIN quizzes q ON q.id = up.quiz_id").
		Where("up.user_id = ? AND up.status = ? AND q.is_active = ?", userID, model.StatusCompleted, true).
		Count(&completed).Error
	if err != nil {
		return 0, 0, errors.Wrap(err, "count completed quizzes")
	}
	if err = tx.Model(&model.Quiz{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count active quizzes")
	}
	return completed, active, nil
}

// recomputeTrainingProgress 试卷增删或启停后分母变化，重算所有用户的完成度
func recomputeTrainingProgress(tx *gorm.DB) error {
	var active int64
	if err := tx.Model(&model.Quiz{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return errors.Wrap(err, "count active quizzes")
	}

	type completionRow struct {
		UserID    uint
		Completed int64
	}
	var rows []completionRow
	err := tx.Table("user_progress up").
		Select("up.user_id as user_id, COUNT(*) as completed").
		Joins("JOIN quizzes q ON q.id = up.quiz_id").
		Where("up.status = ? AND q.is_active = ?", model.StatusCompleted, true).
		Group("up.user_id").
		Scan(&rows).Error
	if err != nil {
		return errors.Wrap(err, "aggregate completion")
	}

	if err := tx.Model(&model.User{}).Where("training_progress <> ?", 0).Update("training_progress", 0).Error; err != nil {
		return errors.Wrap(err, "reset training progress")
	}
	for _, row := range rows {
		pct := TrainingProgress(row.Completed, active)
		if err := tx.Model(&model.User{}).Where("id = ?", row.UserID).Update("training_progress", pct).Error; err != nil {
			return errors.Wrap(err, "update training progress")
		}
	}
	return nil
}

func (r *ProgressRepository) FindProgress(userID, quizID uint) (*model.Progress, error) {
	var p model.Progress
	if err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).First(&p).Error; err != nil {
		return nil, errors.Wrap(err, "find progress")
	}
	return &p, nil
}

func (r *ProgressRepository) ListAttempts(userID, quizID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("completed_at desc").Find(&attempts).Error
	return attempts, errors.Wrap(err, "list attempts")
}

func (r *ProgressRepository) History(userID uint, limit int) ([]HistoryRow, error) {
	var rows []HistoryRow
	query := r.DB.Table("test_results tr").
		Select("tr.*, t.title as title, t.difficulty as difficulty").
		Joins("JOIN quizzes t ON tr.quiz_id = t.id").
		Where("tr.user_id = ?", userID).
		Order("tr.completed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Scan(&rows).Error
	return rows, errors.Wrap(err, "list history")
}

func (r *ProgressRepository) QuizStatistics(quizID uint) (*QuizStatistics, error) {
	type aggRow struct {
		TotalAttempts int64
		AvgScore      *float64
		MaxScore      *int
		MinScore      *int
	}
	var agg aggRow
	err := r.DB.Model(&model.Attempt{}).
		Select("COUNT(*) as total_attempts, AVG(score) as avg_score, MAX(score) as max_score, MIN(score) as min_score").
		Where("quiz_id = ?", quizID).
		Scan(&agg).Error
	if err != nil {
		return nil, errors.Wrap(err, "aggregate attempts")
	}

	stats := &QuizStatistics{QuizID: quizID, TotalAttempts: agg.TotalAttempts}
	if agg.AvgScore != nil {
		stats.AvgScore = *agg.AvgScore
	}
	if agg.MaxScore != nil {
		stats.MaxScore = *agg.MaxScore
	}
	if agg.MinScore != nil {
		stats.MinScore = *agg.MinScore
	}

	err = r.DB.Model(&model.Progress{}).
		Where("quiz_id = ? AND status = ?", quizID, model.StatusCompleted).
		Distinct("user_id").
		Count(&stats.CompletedUsers).Error
	if err != nil {
		return nil, errors.Wrap(err, "count completed users")
	}

	var totalUsers int64
	err = r.DB.Model(&model.User{}).
		Where("is_active = ? AND role <> ?", true, model.Admin).
		Count(&totalUsers).Error
	if err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	if totalUsers > 0 {
		stats.CompletionRate = float64(stats.CompletedUsers) / float64(totalUsers) * 100
	}
	return stats, nil
}

// ScoreTotals 用户所有答题记录的得分与满分之和
func (r *ProgressRepository) ScoreTotals(userID uint) (score int64, maxScore int64, err error) {
	type totalsRow struct {
		Score    int64
		MaxScore int64
	}
	var row totalsRow
	err = r.DB.Model(&model.Attempt{}).
		Select("COALESCE(SUM(score), 0) as score, COALESCE(SUM(max_score), 0) as max_score").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, errors.Wrap(err, "sum scores")
	}
	return row.Score, row.MaxScore, nil
}

// StartProgress 首次打开试卷时写入 in_progress，已有记录保持不变
func (r *ProgressRepository) StartProgress(userID, quizID uint) (*model.Progress, error) {
	progress := model.Progress{
		UserID: userID,
		QuizID: quizID,
		Status: model.StatusInProgress,
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "quiz_id"}},
		DoNothing: true,
	}).Create(&progress).Error
	if err != nil {
		return nil, errors.Wrap(err, "start progress")
	}
	return r.FindProgress(userID, quizID)
}
