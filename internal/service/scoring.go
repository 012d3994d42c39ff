package service

import (
	"phish_trainer_backend/internal/model"
	"strconv"
)

// Score 纯函数：按题目顺序判分，不读写任何存储。
// answers 以题目 ID 的字符串形式为键；缺失或为 null 的题目记为未作答。
func Score(quiz *model.Quiz, answers map[string]model.SubmittedAnswer) model.ScoreResult {
	result := model.ScoreResult{
		Breakdown: make(model.Breakdown, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		result.MaxScore += q.Points

		key := strconv.FormatUint(uint64(q.ID), 10)
		answer := answers[key]

		correct := false
		if answer.Present() {
			correct = IsCorrect(q, answer)
		}
		if correct {
			result.Score += q.Points
		}

		result.Breakdown[key] = model.QuestionOutcome{
			UserAnswer:    answer,
			Correct:       correct,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}

	result.Percentage = Percentage(result.Score, result.MaxScore)
	return result
}

// Percentage 向下取整，满分为 0 时返回 0
func Percentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return score * 100 / maxScore
}

// IsCorrect 单选题：提交值属于标准答案即正确，允许只含一个元素的数组；
// 多选题：提交值集合与标准答案集合完全相等，子集不得分。
func IsCorrect(q model.Question, answer model.SubmittedAnswer) bool {
	switch q.Type {
	case model.SingleChoice:
		if len(answer.Tokens) != 1 {
			return false
		}
		idx, ok := model.CanonicalIndex(answer.Tokens[0])
		return ok && q.CorrectAnswer.Contains(idx)
	case model.MultipleChoice:
		submitted := make(model.IndexSet, 0, len(answer.Tokens))
		for _, tok := range answer.Tokens {
			idx, ok := model.CanonicalIndex(tok)
			if !ok {
				return false
			}
			submitted = append(submitted, idx)
		}
		return submitted.Equal(q.CorrectAnswer)
	}
	return false
}
