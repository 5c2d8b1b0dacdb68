package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/services"
	"github.com/vytor/cryptogram/internal/testutil/mocks"
)

func TestQuoteService_RandomQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown difficulty", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		svc := services.NewQuoteService(repo, "salt")

		_, err := svc.RandomQuote(ctx, "extreme")
		assert.True(t, errors.IsValidation(err))
		repo.AssertNotCalled(t, "Random", mock.Anything, mock.Anything)
	})

	t.Run("passes not found through", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		repo.On("Random", mock.Anything, models.DifficultyHard).Return(nil, errors.NewNotFoundError("hard quote", "any"))
		svc := services.NewQuoteService(repo, "salt")

		_, err := svc.RandomQuote(ctx, models.DifficultyHard)
		assert.True(t, errors.IsNotFound(err))
		repo.AssertExpectations(t)
	})

	t.Run("any difficulty", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		want := &models.Quote{ID: 3, Text: "Hello"}
		repo.On("Random", mock.Anything, models.Difficulty("")).Return(want, nil)
		svc := services.NewQuoteService(repo, "salt")

		got, err := svc.RandomQuote(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestQuoteService_AddQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects text without letters", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		svc := services.NewQuoteService(repo, "salt")

		_, err := svc.AddQuote(ctx, models.NewQuote{Text: "1234 !?", Author: "Nobody"})
		assert.True(t, errors.IsInvalidQuote(err))
		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid UTF-8", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		svc := services.NewQuoteService(repo, "salt")

		_, err := svc.AddQuote(ctx, models.NewQuote{Text: "Caf\xe9 ok", Author: "Nobody"})
		assert.True(t, errors.IsInvalidQuote(err))
		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("trims and defaults difficulty", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		expected := models.NewQuote{Text: "Be curious.", Author: "Anon", Difficulty: models.DifficultyMedium}
		repo.On("Add", mock.Anything, expected).Return(&models.Quote{ID: 1, Text: expected.Text}, nil)
		svc := services.NewQuoteService(repo, "salt")

		q, err := svc.AddQuote(ctx, models.NewQuote{Text: "  Be curious. ", Author: " Anon"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), q.ID)
		repo.AssertExpectations(t)
	})
}

func TestQuoteService_ListQuotes(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockQuoteRepository)
	filter := models.QuoteFilter{Difficulty: models.DifficultyEasy, Limit: 2}
	repo.On("List", mock.Anything, filter).Return([]models.Quote{{ID: 1}, {ID: 2}}, nil)
	repo.On("Count", mock.Anything, filter).Return(5, nil)
	svc := services.NewQuoteService(repo, "salt")

	quotes, total, err := svc.ListQuotes(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, 5, total)
}

func TestQuoteService_DailyQuote(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("scheduled quote wins", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		scheduled := &models.Quote{ID: 9, IsDaily: true, DailyDate: "2024-03-01"}
		repo.On("Daily", mock.Anything, "2024-03-01").Return(scheduled, nil)
		svc := services.NewQuoteService(repo, "salt")

		q, err := svc.DailyQuote(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, int64(9), q.ID)
		repo.AssertNotCalled(t, "ActiveIDs", mock.Anything)
	})

	t.Run("falls back to salted pick", func(t *testing.T) {
		ids := []int64{10, 20, 30, 40, 50}
		want := ids[services.DailyIndex(day, "salt", len(ids))]

		repo := new(mocks.MockQuoteRepository)
		repo.On("Daily", mock.Anything, "2024-03-01").Return(nil, nil)
		repo.On("ActiveIDs", mock.Anything).Return(ids, nil)
		repo.On("Get", mock.Anything, want).Return(&models.Quote{ID: want}, nil)
		svc := services.NewQuoteService(repo, "salt")

		q, err := svc.DailyQuote(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, want, q.ID)
		repo.AssertExpectations(t)
	})

	t.Run("empty catalogue", func(t *testing.T) {
		repo := new(mocks.MockQuoteRepository)
		repo.On("Daily", mock.Anything, "2024-03-01").Return(nil, nil)
		repo.On("ActiveIDs", mock.Anything).Return([]int64{}, nil)
		svc := services.NewQuoteService(repo, "salt")

		_, err := svc.DailyQuote(ctx, day)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestQuoteService_ScheduleDaily(t *testing.T) {
	repo := new(mocks.MockQuoteRepository)
	repo.On("ScheduleDaily", mock.Anything, int64(4), "2024-12-25").Return(nil)
	svc := services.NewQuoteService(repo, "salt")

	err := svc.ScheduleDaily(context.Background(), 4, time.Date(2024, 12, 25, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
