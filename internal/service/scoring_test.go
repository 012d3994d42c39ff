package service

import (
	"encoding/json"
	"testing"

	"phish_trainer_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringQuiz() *model.Quiz {
	q1 := model.Question{Text: "q1", Type: model.SingleChoice, Options: model.OptionList{"a", "b", "c"}, CorrectAnswer: model.IndexSet{1}, Points: 2, Explanation: "single"}
	q1.ID = 11
	q2 := model.Question{Text: "q2", Type: model.MultipleChoice, Options: model.OptionList{"a", "b", "c"}, CorrectAnswer: model.IndexSet{0, 2}, Points: 1, Explanation: "multi"}
	q2.ID = 12
	return &model.Quiz{Title: "Q1", IsActive: true, Questions: []model.Question{q1, q2}}
}

func answersFromJSON(t *testing.T, raw string) map[string]model.SubmittedAnswer {
	t.Helper()
	var answers map[string]model.SubmittedAnswer
	require.NoError(t, json.Unmarshal([]byte(raw), &answers))
	return answers
}

func TestScoreScenario(t *testing.T) {
	quiz := scoringQuiz()

	full := Score(quiz, answersFromJSON(t, `{"11": "1", "12": [0, 2]}`))
	assert.Equal(t, 3, full.Score)
	assert.Equal(t, 3, full.MaxScore)
	assert.Equal(t, 100, full.Percentage)
	assert.True(t, full.Breakdown["11"].Correct)
	assert.True(t, full.Breakdown["12"].Correct)

	partial := Score(quiz, answersFromJSON(t, `{"11": "0"}`))
	assert.Equal(t, 0, partial.Score)
	assert.Equal(t, 3, partial.MaxScore)
	assert.Equal(t, 0, partial.Percentage)

	// 未作答的题目也出现在明细中
	require.Contains(t, partial.Breakdown, "12")
	unanswered := partial.Breakdown["12"]
	assert.False(t, unanswered.Correct)
	assert.False(t, unanswered.UserAnswer.Present())
	assert.Equal(t, model.IndexSet{0, 2}, unanswered.CorrectAnswer)
	assert.Equal(t, "multi", unanswered.Explanation)
}

func TestScoreMaxScoreIgnoresAnswers(t *testing.T) {
	quiz := scoringQuiz()
	inputs := []string{`{}`, `{"11": 1}`, `{"11": null, "12": null}`, `{"12": [0, 1, 2]}`, `{"999": 1}`}
	for _, in := range inputs {
		result := Score(quiz, answersFromJSON(t, in))
		assert.Equal(t, quiz.MaxScore(), result.MaxScore, in)
		assert.Len(t, result.Breakdown, len(quiz.Questions), in)
	}

	assert.Equal(t, 0, Score(quiz, nil).Score)
}

func TestScoreIsDeterministic(t *testing.T) {
	quiz := scoringQuiz()
	answers := answersFromJSON(t, `{"11": 1, "12": [2, 0]}`)

	first := Score(quiz, answers)
	second := Score(quiz, answers)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestSingleChoiceCorrectness(t *testing.T) {
	q := model.Question{Type: model.SingleChoice, CorrectAnswer: model.IndexSet{1}}

	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{"string index", `"1"`, true},
		{"number index", `1`, true},
		{"one element list", `[1]`, true},
		{"one element string list", `["1"]`, true},
		{"wrong index", `0`, false},
		{"leading zero", `"01"`, false},
		{"padded", `" 1"`, false},
		{"float", `1.0`, false},
		{"two element list", `[1, 2]`, false},
		{"empty list", `[]`, false},
		{"boolean", `true`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a model.SubmittedAnswer
			require.NoError(t, json.Unmarshal([]byte(tt.answer), &a))
			assert.Equal(t, tt.want, IsCorrect(q, a))
		})
	}
}

func TestMultipleChoiceCorrectness(t *testing.T) {
	q := model.Question{Type: model.MultipleChoice, CorrectAnswer: model.IndexSet{0, 1, 2}}

	tests := []struct {
		answer string
		want   bool
	}{
		{`[0, 1, 2]`, true},
		{`[2, 0, 1]`, true},
		{`["1", 2, "0"]`, true},
		{`[0, 2]`, false},
		{`[0, 1, 2, 3]`, false},
		{`[0, 1, "02"]`, false},
		{`[]`, false},
		{`1`, false},
	}
	for _, tt := range tests {
		var a model.SubmittedAnswer
		require.NoError(t, json.Unmarshal([]byte(tt.answer), &a))
		assert.Equal(t, tt.want, IsCorrect(q, a), tt.answer)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 66, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(3, 3))
	assert.Equal(t, 33, Percentage(1, 3))
}
