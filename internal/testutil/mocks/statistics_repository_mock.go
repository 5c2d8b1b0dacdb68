package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cryptogram/internal/models"
)

// MockStatisticsRepository is a mock implementation of repository.StatisticsRepository
type MockStatisticsRepository struct {
	mock.Mock
}

func (m *MockStatisticsRepository) RecordCompletion(ctx context.Context, c models.Completion) (*models.Statistics, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Statistics), args.Error(1)
}

func (m *MockStatisticsRepository) Get(ctx context.Context, userID string) (*models.Statistics, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Statistics), args.Error(1)
}
