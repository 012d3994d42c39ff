package service

import (
	"context"
	"path/filepath"
	"testing"

	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/testutil"
	"phish_trainer_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() QuestionReq {
	return QuestionReq{
		QuestionText:  "Is this phishing?",
		QuestionType:  model.SingleChoice,
		Options:       []string{"yes", "no"},
		CorrectAnswer: []int{0},
		Explanation:   "it is",
	}
}

func TestBuildQuestionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuestionReq)
	}{
		{"empty text", func(q *QuestionReq) { q.QuestionText = "  " }},
		{"unknown type", func(q *QuestionReq) { q.QuestionType = "essay" }},
		{"single option", func(q *QuestionReq) { q.Options = []string{"only"} }},
		{"no correct answer", func(q *QuestionReq) { q.CorrectAnswer = nil }},
		{"index out of range", func(q *QuestionReq) { q.CorrectAnswer = []int{2} }},
		{"negative index", func(q *QuestionReq) { q.CorrectAnswer = []int{-1} }},
		{"single choice with two answers", func(q *QuestionReq) { q.CorrectAnswer = []int{0, 1} }},
		{"zero points", func(q *QuestionReq) { q.Points = intPtr(0) }},
		{"duplicate index", func(q *QuestionReq) {
			q.QuestionType = model.MultipleChoice
			q.CorrectAnswer = []int{1, 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validQuestion()
			tt.mutate(&req)
			_, err := BuildQuestion(req)
			assert.ErrorIs(t, err, util.ErrValidation)
		})
	}

	q, err := BuildQuestion(validQuestion())
	require.NoError(t, err)
	assert.Equal(t, 1, q.Points, "points default to 1")
}

func TestCreateQuizIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, nil, "Acme")

	req := QuizReq{Title: "Links", Questions: []QuestionReq{validQuestion()}}

	_, err := f.quizzes.CreateQuiz(context.Background(), callerOf(manager), req)
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)

	quiz, err := f.quizzes.CreateQuiz(context.Background(), callerOf(admin), req)
	require.NoError(t, err)
	assert.True(t, quiz.IsActive)
	assert.Equal(t, model.DifficultyBeginner, quiz.Difficulty)
	assert.Equal(t, admin.ID, quiz.CreatedBy)
	require.Len(t, quiz.Questions, 1)

	_, err = f.quizzes.CreateQuiz(context.Background(), callerOf(admin), QuizReq{Title: "x", Difficulty: "insane"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.quizzes.CreateQuiz(context.Background(), callerOf(admin), QuizReq{Title: "x", Questions: []QuestionReq{{QuestionText: "broken"}}})
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestGetQuizForTakingWithholdsAnswerKey(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	active := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 2, 1))
	hidden := testutil.CreateQuiz(t, f.db, "draft", false, testutil.SingleChoice("q", 2, 1))

	quiz, err := f.quizzes.GetQuizForTaking(context.Background(), callerOf(subject), active.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Nil(t, quiz.Questions[0].CorrectAnswer)
	assert.Empty(t, quiz.Questions[0].Explanation)
	assert.Len(t, quiz.Questions[0].Options, 4)

	full, err := f.quizzes.GetQuizForManagement(context.Background(), callerOf(admin), active.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IndexSet{2}, full.Questions[0].CorrectAnswer)

	_, err = f.quizzes.GetQuizForManagement(context.Background(), callerOf(subject), active.ID)
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)

	_, err = f.quizzes.GetQuizForTaking(context.Background(), callerOf(subject), hidden.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = f.quizzes.GetQuizForTaking(context.Background(), callerOf(admin), hidden.ID)
	assert.NoError(t, err)

	_, err = f.quizzes.GetQuiz(context.Background(), 999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestListQuizzesDefaultsToNotStarted(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))
	testutil.CreateQuiz(t, f.db, "draft", false, testutil.SingleChoice("q", 0, 1))

	rows, err := f.quizzes.ListQuizzes(&subject.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Status)
	assert.Equal(t, model.StatusNotStarted, *rows[0].Status)
	assert.Equal(t, 0, *rows[0].Attempts)

	anonymous, err := f.quizzes.ListQuizzes(nil)
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	assert.Nil(t, anonymous[0].Status)
}

func TestDeleteQuizConflictAndForce(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	_, err := f.progress.Submit(context.Background(), callerOf(subject), quiz.ID, SubmitReq{
		Answers: map[string]model.SubmittedAnswer{},
	})
	require.NoError(t, err)

	err = f.quizzes.DeleteQuiz(context.Background(), callerOf(admin), quiz.ID, false)
	assert.ErrorIs(t, err, util.ErrConflict)

	err = f.quizzes.DeleteQuiz(context.Background(), callerOf(subject), quiz.ID, true)
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)

	require.NoError(t, f.quizzes.DeleteQuiz(context.Background(), callerOf(admin), quiz.ID, true))

	err = f.quizzes.DeleteQuiz(context.Background(), callerOf(admin), quiz.ID, true)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUpdateQuizAndAddQuestion(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	updated, err := f.quizzes.UpdateQuiz(context.Background(), callerOf(admin), quiz.ID, QuizReq{
		Title:    "basics v2",
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "basics v2", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Len(t, updated.Questions, 1, "questions are kept when omitted")

	multi := validQuestion()
	multi.QuestionType = model.MultipleChoice
	multi.CorrectAnswer = []int{0, 1}
	multi.Points = intPtr(3)
	question, err := f.quizzes.AddQuestion(context.Background(), callerOf(admin), quiz.ID, multi)
	require.NoError(t, err)
	assert.Equal(t, 1, question.Position)

	reloaded, err := f.quizzes.GetQuiz(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.MaxScore())

	replaced, err := f.quizzes.UpdateQuiz(context.Background(), callerOf(admin), quiz.ID, QuizReq{
		Title:     "basics v3",
		Questions: []QuestionReq{validQuestion()},
	})
	require.NoError(t, err)
	assert.Len(t, replaced.Questions, 1)
	assert.False(t, replaced.IsActive, "is_active is kept when omitted")

	_, err = f.quizzes.UpdateQuiz(context.Background(), callerOf(admin), 999, QuizReq{Title: "x"})
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.quizzes.AddQuestion(context.Background(), callerOf(admin), 999, validQuestion())
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestQuizRequiresQuestions(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	_, err := f.quizzes.CreateQuiz(context.Background(), callerOf(admin), QuizReq{Title: "empty"})
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = f.quizzes.CreateQuiz(context.Background(), callerOf(admin), QuizReq{Title: "empty", Questions: []QuestionReq{}})
	assert.ErrorIs(t, err, util.ErrValidation)

	var quizzes int64
	require.NoError(t, f.db.Model(&model.Quiz{}).Count(&quizzes).Error)
	assert.Equal(t, int64(1), quizzes)

	_, err = f.quizzes.UpdateQuiz(context.Background(), callerOf(admin), quiz.ID, QuizReq{
		Title:     "basics",
		Questions: []QuestionReq{},
	})
	assert.ErrorIs(t, err, util.ErrValidation)

	kept, err := f.quizzes.GetQuiz(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Questions, 1)
}

func TestForceDeletePurgesArchivedReports(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))
	kept := testutil.CreateQuiz(t, f.db, "other", true, testutil.SingleChoice("q", 0, 1))

	local := f.archive.Provider.(*LocalStorageProvider)
	archive := func(quizID uint) string {
		entry, err := f.progress.RecordAttempt(context.Background(), subject.ID, quizID, model.ScoreResult{Score: 1, MaxScore: 1}, 5)
		require.NoError(t, err)
		_, err = f.archive.Archive(context.Background(), "report", entry)
		require.NoError(t, err)
		path := filepath.Join(local.Config.LocalPath, ReportKey(entry))
		require.FileExists(t, path)
		return path
	}
	first := archive(quiz.ID)
	second := archive(quiz.ID)
	other := archive(kept.ID)

	require.NoError(t, f.quizzes.DeleteQuiz(context.Background(), callerOf(admin), quiz.ID, true))

	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
	assert.FileExists(t, other, "reports of other quizzes are kept")
}

func TestPurgeIgnoresMissingReports(t *testing.T) {
	f := newFixture(t)
	purged := f.archive.Purge(context.Background(), []model.Attempt{
		{UUIDBase: model.UUIDBase{ID: "missing"}, UserID: 1, QuizID: 1},
	})
	assert.Equal(t, 1, purged)
}
