package repository

import (
	"phish_trainer_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrQuizHasAttempts 试卷存在答题记录且未要求级联删除
var ErrQuizHasAttempts = errors.New("quiz has recorded attempts")

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// QuizListRow 列表行，带题目数量；指定用户时附带该用户的进度
type QuizListRow struct {
	model.Quiz
	QuestionCount int                   `json:"questionCount"`
	Status        *model.ProgressStatus `json:"status"`
	Score         *int                  `json:"score"`
	Attempts      *int                  `json:"attempts"`
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, id asc")
}

// CreateWithQuestions 试卷与题目在同一事务中写入
func (r *QuizRepository) CreateWithQuestions(quiz *model.Quiz) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quiz).Error; err != nil {
			return errors.Wrap(err, "create quiz")
		}
		return recomputeTrainingProgress(tx)
	})
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.Preload("Questions", orderedQuestions).First(&quiz, id).Error; err != nil {
		return nil, errors.Wrapf(err, "find quiz %d", id)
	}
	return &quiz, nil
}

func (r *QuizRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Quiz{}).Where("id = ?", id).Count(&count).Error
	return count > 0, errors.Wrap(err, "check quiz")
}

// List activeOnly=false 时返回全部试卷（管理视角）；userID>0 时附带进度
func (r *QuizRepository) List(activeOnly bool, userID uint) ([]QuizListRow, error) {
	selectClause := "t.*, (SELECT COUNT(*) FROM questions q WHERE q.quiz_id = t.id) as question_count"
	query := r.DB.Table("quizzes t")
	if userID > 0 {
		selectClause += ", up.status as status, up.score as score, up.attempts as attempts"
		query = query.Joins("LEFT JOIN user_progress up ON t.id = up.quiz_id AND up.user_id = ?", userID)
	}
	query = query.Select(selectClause)
	if activeOnly {
		query = query.Where("t.is_active = ?", true)
	}

	var rows []QuizListRow
	err := query.Order("t.created_at desc, t.id desc").Scan(&rows).Error
	return rows, errors.Wrap(err, "list quizzes")
}

// UpdateFields 更新试卷元数据；questions 非 nil 时整体替换题目
func (r *QuizRepository) Update(quiz *model.Quiz, questions []model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Quiz{}).Where("id = ?", quiz.ID).Updates(map[string]interface{}{
			"title":       quiz.Title,
			"description": quiz.Description,
			"difficulty":  quiz.Difficulty,
			"time_limit":  quiz.TimeLimit,
			"is_active":   quiz.IsActive,
		})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update quiz")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "update quiz %d", quiz.ID)
		}

		if questions != nil {
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&model.Question{}).Error; err != nil {
				return errors.Wrap(err, "delete old questions")
			}
			for i := range questions {
				questions[i].ID = 0
				questions[i].QuizID = quiz.ID
			}
			if len(questions) > 0 {
				if err := tx.Create(&questions).Error; err != nil {
					return errors.Wrap(err, "create questions")
				}
			}
		}
		return recomputeTrainingProgress(tx)
	})
}

func (r *QuizRepository) AddQuestion(question *model.Question) error {
	return errors.Wrap(r.DB.Create(question).Error, "add question")
}

// Delete 题目随试卷级联删除；存在答题记录时只有 force 才会一并删除记录与进度，
// 返回被删除的答题记录，调用方据此清理归档报告
func (r *QuizRepository) Delete(quizID uint, force bool) ([]model.Attempt, error) {
	var removed []model.Attempt
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&model.Quiz{}).Where("id = ?", quizID).Count(&exists).Error; err != nil {
			return errors.Wrap(err, "check quiz")
		}
		if exists == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "delete quiz %d", quizID)
		}

		if err := tx.Select("id", "user_id", "quiz_id").Where("quiz_id = ?", quizID).Find(&removed).Error; err != nil {
			return errors.Wrap(err, "load attempts")
		}
		if len(removed) > 0 && !force {
			return errors.WithStack(ErrQuizHasAttempts)
		}

		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.Attempt{}).Error; err != nil {
			return errors.Wrap(err, "delete attempts")
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.Progress{}).Error; err != nil {
			return errors.Wrap(err, "delete progress")
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.Question{}).Error; err != nil {
			return errors.Wrap(err, "delete questions")
		}
		if err := tx.Delete(&model.Quiz{}, quizID).Error; err != nil {
			return errors.Wrap(err, "delete quiz")
		}
		return recomputeTrainingProgress(tx)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
