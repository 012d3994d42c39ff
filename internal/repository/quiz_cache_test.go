package repository

import (
	"context"
	"testing"

	"phish_trainer_backend/internal/model"
	"phish_trainer_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizCacheCodecKeepsAnswerKey(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewQuizRepository(db)
	created := testutil.CreateQuiz(t, db, "links", false,
		testutil.SingleChoice("sender", 1, 2),
		testutil.MultipleChoice("signs", []int{0, 2}, 1),
	)
	quiz, err := repo.FindByID(created.ID)
	require.NoError(t, err)

	raw, err := encodeQuiz(quiz)
	require.NoError(t, err)
	cached, err := decodeQuiz(raw)
	require.NoError(t, err)

	assert.Equal(t, quiz.ID, cached.ID)
	assert.Equal(t, "links", cached.Title)
	assert.False(t, cached.IsActive)
	assert.True(t, quiz.CreatedAt.Equal(cached.CreatedAt))
	assert.Equal(t, 3, cached.MaxScore())

	require.Len(t, cached.Questions, 2)
	for i, want := range quiz.Questions {
		got := cached.Questions[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Text, got.Text)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Options, got.Options)
		assert.Equal(t, want.CorrectAnswer, got.CorrectAnswer)
		assert.Equal(t, want.Explanation, got.Explanation)
		assert.Equal(t, want.Points, got.Points)
		assert.Equal(t, want.Position, got.Position)
	}
	assert.Equal(t, model.IndexSet{0, 2}, cached.Questions[1].CorrectAnswer)
}

func TestQuizCacheDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeQuiz([]byte("not json"))
	assert.Error(t, err)
}

func TestNewQuizCacheWithoutRedis(t *testing.T) {
	cache := NewQuizCache(nil, 0)
	assert.IsType(t, NopQuizCache{}, cache)

	got, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(context.Background(), &model.Quiz{}))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
