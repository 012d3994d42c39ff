package model

import "time"

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// Progress (user, quiz) 最新状态，历史以 Attempt 为准
// swagger:model Progress
type Progress struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint           `gorm:"uniqueIndex:idx_progress_user_quiz;not null" json:"userId"`
	QuizID      uint           `gorm:"uniqueIndex:idx_progress_user_quiz;not null" json:"quizId"`
	Status      ProgressStatus `gorm:"size:20;default:'not_started'" json:"status"`
	Score       int            `gorm:"default:0" json:"score"`
	CompletedAt *time.Time     `json:"completedAt"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
}

func (Progress) TableName() string {
	return "user_progress"
}
