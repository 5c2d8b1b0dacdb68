package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cryptogram/internal/models"
)

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, s models.GameSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) LoadLatestUnfinished(ctx context.Context) (*models.GameSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx context.Context, sessionID string) (*models.GameSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockSessionRepository) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) Finish(ctx context.Context, sessionID string, score int, timeTakenSeconds float64) error {
	args := m.Called(ctx, sessionID, score, timeTakenSeconds)
	return args.Error(0)
}

func (m *MockSessionRepository) Record(ctx context.Context, sessionID string) (*models.GameRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameRecord), args.Error(1)
}

func (m *MockSessionRepository) ListCompleted(ctx context.Context, limit int) ([]models.GameRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GameRecord), args.Error(1)
}
