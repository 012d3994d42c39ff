package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/testutil"
	"phish_trainer_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionKey(q model.Question) string {
	return strconv.FormatUint(uint64(q.ID), 10)
}

func TestSubmitScoresAndRecords(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "links", true,
		testutil.SingleChoice("sender", 1, 1),
		testutil.MultipleChoice("signs", []int{0, 2}, 2),
	)
	single, multi := quiz.Questions[0], quiz.Questions[1]

	result, err := f.progress.Submit(context.Background(), callerOf(subject), quiz.ID, SubmitReq{
		Answers: map[string]model.SubmittedAnswer{
			questionKey(single): model.NewAnswer("1"),
			questionKey(multi):  model.NewAnswer([]int{2, 0}),
		},
		TimeSpent: 42,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.AttemptID)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 3, result.MaxScore)
	assert.Equal(t, 100, result.Percentage)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 100, result.TrainingProgress)
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, "because signs", result.Breakdown[questionKey(multi)].Explanation)

	again, err := f.progress.Submit(context.Background(), callerOf(subject), quiz.ID, SubmitReq{
		Answers: map[string]model.SubmittedAnswer{
			questionKey(single): model.NewAnswer(0),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Score)
	assert.Equal(t, 2, again.Attempts)
	assert.False(t, again.Breakdown[questionKey(multi)].Correct)
	assert.False(t, again.Breakdown[questionKey(multi)].UserAnswer.Present())

	stored, err := f.progress.QuizAttempts(context.Background(), callerOf(subject), quiz.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.ElementsMatch(t, []string{result.AttemptID, again.AttemptID}, []string{stored[0].ID, stored[1].ID})

	progress, err := f.progress.ProgressRepo.FindProgress(subject.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Score, "progress reflects the latest submission")
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	active := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))
	hidden := testutil.CreateQuiz(t, f.db, "draft", false, testutil.SingleChoice("q", 0, 1))

	_, err := f.progress.Submit(context.Background(), callerOf(subject), active.ID, SubmitReq{TimeSpent: -1})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.progress.Submit(context.Background(), callerOf(subject), hidden.ID, SubmitReq{})
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.progress.Submit(context.Background(), callerOf(subject), 999, SubmitReq{})
	assert.ErrorIs(t, err, util.ErrNotFound)

	ghost := model.CallerContext{UserID: 404, Role: model.TestSubject}
	_, err = f.progress.Submit(context.Background(), ghost, active.ID, SubmitReq{})
	assert.ErrorIs(t, err, util.ErrPersistence)

	var attempts int64
	require.NoError(t, f.db.Model(&model.Attempt{}).Count(&attempts).Error)
	assert.Zero(t, attempts)
}

func TestStartQuizAndHistory(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	history, err := f.progress.History(callerOf(subject), 10)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	started, err := f.progress.StartQuiz(context.Background(), callerOf(subject), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, started.Status)

	_, err = f.progress.StartQuiz(context.Background(), callerOf(subject), 999)
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.progress.Submit(context.Background(), callerOf(subject), quiz.ID, SubmitReq{})
	require.NoError(t, err)

	history, err = f.progress.History(callerOf(subject), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "basics", history[0].Title)
}

func TestQuizAttemptsAreScopedToCaller(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	bob := testutil.CreateUser(t, f.db, "bob", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	_, err := f.progress.Submit(context.Background(), callerOf(alice), quiz.ID, SubmitReq{})
	require.NoError(t, err)

	mine, err := f.progress.QuizAttempts(context.Background(), callerOf(alice), quiz.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.progress.QuizAttempts(context.Background(), callerOf(bob), quiz.ID)
	require.NoError(t, err)
	assert.NotNil(t, theirs)
	assert.Empty(t, theirs)

	_, err = f.progress.QuizAttempts(context.Background(), callerOf(alice), 999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUserStatsAndRank(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	first := testutil.CreateQuiz(t, f.db, "one", true, testutil.SingleChoice("q", 0, 1))
	testutil.CreateQuiz(t, f.db, "two", true, testutil.SingleChoice("q", 0, 3))

	stats, err := f.progress.UserStats(callerOf(subject))
	require.NoError(t, err)
	assert.Zero(t, stats.SuccessRate)
	assert.Equal(t, RankAdvanced, stats.Rank)

	_, err = f.progress.Submit(context.Background(), callerOf(subject), first.ID, SubmitReq{
		Answers: map[string]model.SubmittedAnswer{questionKey(first.Questions[0]): model.NewAnswer(0)},
	})
	require.NoError(t, err)
	_, err = f.progress.Submit(context.Background(), callerOf(subject), first.ID, SubmitReq{})
	require.NoError(t, err)

	stats, err = f.progress.UserStats(callerOf(subject))
	require.NoError(t, err)
	assert.Equal(t, 50, stats.TrainingProgress)
	assert.Equal(t, 2, stats.PhishingTestsCompleted)
	assert.Equal(t, 50, stats.SuccessRate)
	assert.Equal(t, RankAdvanced, stats.Rank)
	assert.Equal(t, model.SecurityBeginner, stats.SecurityLevel)

	assert.Equal(t, RankAdvanced, RankFor(70))
	assert.Equal(t, RankExpert, RankFor(71))
}

func TestQuizStatisticsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", model.Admin, nil, "")
	manager := testutil.CreateUser(t, f.db, "boss", model.Manager, nil, "Acme")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	_, err := f.progress.QuizStatistics(callerOf(manager), quiz.ID)
	assert.ErrorIs(t, err, util.ErrInsufficientPrivilege)

	_, err = f.progress.QuizStatistics(callerOf(admin), 999)
	assert.ErrorIs(t, err, util.ErrNotFound)

	stats, err := f.progress.QuizStatistics(callerOf(admin), quiz.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAttempts)
}

func TestReportArchiveWritesLocalFile(t *testing.T) {
	f := newFixture(t)
	subject := testutil.CreateUser(t, f.db, "alice", model.TestSubject, nil, "")
	quiz := testutil.CreateQuiz(t, f.db, "basics", true, testutil.SingleChoice("q", 0, 1))

	result := Score(quiz, map[string]model.SubmittedAnswer{questionKey(quiz.Questions[0]): model.NewAnswer(0)})
	entry, err := f.progress.RecordAttempt(context.Background(), subject.ID, quiz.ID, result, 12)
	require.NoError(t, err)

	url, err := f.archive.Archive(context.Background(), quiz.Title, entry)
	require.NoError(t, err)
	assert.Equal(t, "/reports/"+ReportKey(entry), url)

	local := f.archive.Provider.(*LocalStorageProvider)
	raw, err := os.ReadFile(filepath.Join(local.Config.LocalPath, ReportKey(entry)))
	require.NoError(t, err)

	var report AttemptReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, entry.Attempt.ID, report.AttemptID)
	assert.Equal(t, "basics", report.QuizTitle)
	assert.Equal(t, 100, report.Percentage)
	assert.Equal(t, 12, report.TimeSpent)
}
