package service

import (
	"context"
	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/repository"
	"phish_trainer_backend/internal/util"
	"phish_trainer_backend/pkg/logger"
	"phish_trainer_backend/pkg/monitoring"
	"phish_trainer_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	RankExpert   = "expert"
	RankAdvanced = "advanced"
)

// SubmitReq 提交答案请求体，answers 以题目 ID 字符串为键
// swagger:model SubmitReq
type SubmitReq struct {
	Answers   map[string]model.SubmittedAnswer `json:"answers"`
	TimeSpent int                              `json:"time_spent"`
}

// SubmitResult 判分结果与记账后的最新进度
type SubmitResult struct {
	Success   bool   `json:"success"`
	AttemptID string `json:"attempt_id"`
	model.ScoreResult
	Attempts         int `json:"attempts"`
	TrainingProgress int `json:"training_progress"`
}

// UserStats 个人统计
type UserStats struct {
	TrainingProgress       int    `json:"training_progress"`
	PhishingTestsCompleted int    `json:"phishing_tests_completed"`
	SuccessRate            int    `json:"success_rate"`
	Rank                   string `json:"rank"`
	SecurityLevel          string `json:"security_level"`
}

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	UserRepo     *repository.UserRepository
	Quizzes      *QuizService
	Access       *AccessControl
	Archive      *ReportArchive
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	quizzes *QuizService,
	access *AccessControl,
	archive *ReportArchive,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Quizzes:      quizzes,
		Access:       access,
		Archive:      archive,
	}
}

// RankFor 完成度超过阈值为 expert
func RankFor(trainingProgress int) string {
	if trainingProgress > util.ExpertProgressThreshold {
		return RankExpert
	}
	return RankAdvanced
}

// RecordAttempt 单事务记账，任何失败整体回滚并以 ErrPersistence 返回
func (s *ProgressService) RecordAttempt(ctx context.Context, userID, quizID uint, result model.ScoreResult, timeSpent int) (*repository.LedgerEntry, error) {
	attempt := &model.Attempt{
		UserID:    userID,
		QuizID:    quizID,
		Score:     result.Score,
		MaxScore:  result.MaxScore,
		TimeSpent: timeSpent,
		Answers:   result.Breakdown,
	}
	entry, err := s.ProgressRepo.RecordAttempt(ctx, attempt)
	if err != nil {
		return nil, util.Persistence(err, "failed to record attempt")
	}
	return entry, nil
}

// Submit 取试卷、判分、记账，提交成功后异步归档报告
func (s *ProgressService) Submit(ctx context.Context, caller model.CallerContext, quizID uint, req SubmitReq) (*SubmitResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("quiz.id", int64(quizID)),
		attribute.Int64("user.id", int64(caller.UserID)),
	)

	if err := s.Access.Require(caller, PermQuizzesTake); err != nil {
		return nil, err
	}
	if req.TimeSpent < 0 {
		return nil, util.Validationf("time spent must not be negative")
	}

	quiz, err := s.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive && !caller.IsAdmin() {
		return nil, util.NotFoundf("quiz not found")
	}

	result := Score(quiz, req.Answers)

	entry, err := s.RecordAttempt(ctx, caller.UserID, quizID, result, req.TimeSpent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record attempt")
		monitoring.ObserveSubmission(quiz.Difficulty, "failed", 0)
		logger.Log.Error("record attempt failed",
			zap.Uint("user_id", caller.UserID),
			zap.Uint("quiz_id", quizID),
			zap.Error(err))
		return nil, err
	}

	monitoring.ObserveSubmission(quiz.Difficulty, "recorded", result.Percentage)
	span.SetAttributes(attribute.Int("score.percentage", result.Percentage))
	logger.Log.Info("attempt recorded",
		zap.String("attempt_id", entry.Attempt.ID),
		zap.Uint("user_id", caller.UserID),
		zap.Uint("quiz_id", quizID),
		zap.Int("score", result.Score),
		zap.Int("max_score", result.MaxScore))

	if s.Archive != nil {
		s.Archive.ArchiveAsync(quiz.Title, entry)
	}

	return &SubmitResult{
		Success:          true,
		AttemptID:        entry.Attempt.ID,
		ScoreResult:      result,
		Attempts:         entry.Progress.Attempts,
		TrainingProgress: entry.User.TrainingProgress,
	}, nil
}

// StartQuiz 标记为进行中，不影响已完成的记录
func (s *ProgressService) StartQuiz(ctx context.Context, caller model.CallerContext, quizID uint) (*model.Progress, error) {
	if err := s.Access.Require(caller, PermQuizzesTake); err != nil {
		return nil, err
	}
	quiz, err := s.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive && !caller.IsAdmin() {
		return nil, util.NotFoundf("quiz not found")
	}

	progress, err := s.ProgressRepo.StartProgress(caller.UserID, quizID)
	if err != nil {
		return nil, repoError(err, "progress")
	}
	return progress, nil
}

// History 本人的答题记录，新的在前；limit<=0 表示不限
func (s *ProgressService) History(caller model.CallerContext, limit int) ([]repository.HistoryRow, error) {
	if err := s.Access.Require(caller, PermProgressViewMe); err != nil {
		return nil, err
	}
	rows, err := s.ProgressRepo.History(caller.UserID, limit)
	if err != nil {
		return nil, repoError(err, "attempt history")
	}
	if rows == nil {
		rows = []repository.HistoryRow{}
	}
	return rows, nil
}

// QuizAttempts 当前用户在某个试卷上的全部提交，最新的在前
func (s *ProgressService) QuizAttempts(ctx context.Context, caller model.CallerContext, quizID uint) ([]model.Attempt, error) {
	if err := s.Access.Require(caller, PermProgressViewMe); err != nil {
		return nil, err
	}
	if _, err := s.Quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.ProgressRepo.ListAttempts(caller.UserID, quizID)
	if err != nil {
		return nil, repoError(err, "attempts")
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// UserStats 成功率由答题记录汇总得出：sum(score)*100/sum(max_score)
func (s *ProgressService) UserStats(caller model.CallerContext) (*UserStats, error) {
	if err := s.Access.Require(caller, PermProgressViewMe); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(caller.UserID)
	if err != nil {
		return nil, repoError(err, "user")
	}
	score, maxScore, err := s.ProgressRepo.ScoreTotals(caller.UserID)
	if err != nil {
		return nil, repoError(err, "attempts")
	}

	return &UserStats{
		TrainingProgress:       user.TrainingProgress,
		PhishingTestsCompleted: user.PhishingTestsCompleted,
		SuccessRate:            Percentage(int(score), int(maxScore)),
		Rank:                   RankFor(user.TrainingProgress),
		SecurityLevel:          user.SecurityLevel,
	}, nil
}

func (s *ProgressService) QuizStatistics(caller model.CallerContext, quizID uint) (*repository.QuizStatistics, error) {
	if err := s.Access.Require(caller, PermQuizzesStats); err != nil {
		return nil, err
	}
	exists, err := s.Quizzes.QuizRepo.Exists(quizID)
	if err != nil {
		return nil, repoError(err, "quiz")
	}
	if !exists {
		return nil, util.NotFoundf("quiz not found")
	}

	stats, err := s.ProgressRepo.QuizStatistics(quizID)
	if err != nil {
		return nil, repoError(err, "quiz statistics")
	}
	return stats, nil
}
