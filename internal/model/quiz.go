package model

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  string     `gorm:"size:20;default:'beginner'" json:"difficulty"`
	TimeLimit   int        `gorm:"default:0" json:"timeLimit"` // 秒，0 表示不限时
	IsActive    bool       `gorm:"not null;index" json:"isActive"`
	CreatedBy   uint       `gorm:"index" json:"createdBy"`
	Questions   []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// MaxScore 试卷满分
func (q *Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
)

func (t QuestionType) Valid() bool {
	return t == SingleChoice || t == MultipleChoice
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID        uint         `gorm:"index;not null" json:"quizId"`
	Text          string       `gorm:"type:text;not null" json:"text"`
	Type          QuestionType `gorm:"size:20;default:'single_choice'" json:"type"`
	Options       OptionList   `gorm:"type:text;not null" json:"options"`
	CorrectAnswer IndexSet     `gorm:"type:text;not null" json:"correctAnswer,omitempty"`
	Explanation   string       `gorm:"type:text" json:"explanation,omitempty"`
	Points        int          `gorm:"default:1" json:"points"`
	Position      int          `gorm:"default:0" json:"position"`
}

func (Question) TableName() string {
	return "questions"
}

// WithoutAnswerKey 返回去掉标准答案和解析的副本，供答题端展示
func (q Question) WithoutAnswerKey() Question {
	q.CorrectAnswer = nil
	q.Explanation = ""
	return q
}
