package model

import "time"

// Attempt 一次提交的不可变记录
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	UserID      uint      `gorm:"index;not null" json:"userId"`
	QuizID      uint      `gorm:"index;not null" json:"quizId"`
	Score       int       `gorm:"not null" json:"score"`
	MaxScore    int       `gorm:"not null" json:"maxScore"`
	TimeSpent   int       `gorm:"not null;default:0" json:"timeSpent"`
	CompletedAt time.Time `gorm:"index" json:"completedAt"`
	Answers     Breakdown `gorm:"type:text" json:"answers"`
}

func (Attempt) TableName() string {
	return "test_results"
}

// QuestionOutcome 单题判分明细
type QuestionOutcome struct {
	UserAnswer    SubmittedAnswer `json:"user_answer"`
	Correct       bool            `json:"correct"`
	CorrectAnswer IndexSet        `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
}

// ScoreResult 判分结果，Breakdown 以题目 ID 字符串为键
type ScoreResult struct {
	Score      int       `json:"score"`
	MaxScore   int       `json:"max_score"`
	Percentage int       `json:"percentage"`
	Breakdown  Breakdown `json:"breakdown"`
}
