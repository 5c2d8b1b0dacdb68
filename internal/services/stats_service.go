package services

import (
	"context"
	"fmt"

	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
	"github.com/vytor/cryptogram/internal/worker"
)

// WriteQueue runs a job and reports its result. *worker.Pool with a single
// worker serializes every statistics write through it.
type WriteQueue interface {
	Do(ctx context.Context, job worker.Job) error
}

// StatsService handles player statistics
type StatsService interface {
	RecordCompletion(ctx context.Context, c models.Completion) (*models.Statistics, error)
	GetStatistics(ctx context.Context, userID string) (*models.Statistics, error)
}

type statsService struct {
	statsRepo repository.StatisticsRepository
	queue     WriteQueue
}

// NewStatsService creates a new StatsService
func NewStatsService(statsRepo repository.StatisticsRepository, queue WriteQueue) StatsService {
	return &statsService{statsRepo: statsRepo, queue: queue}
}

type recordCompletionJob struct {
	repo   repository.StatisticsRepository
	c      models.Completion
	result *models.Statistics
}

func (j *recordCompletionJob) Name() string { return "record_completion:" + j.c.UserID }

func (j *recordCompletionJob) Run(ctx context.Context) error {
	st, err := j.repo.RecordCompletion(ctx, j.c)
	if err != nil {
		return err
	}
	j.result = st
	return nil
}

func (s *statsService) RecordCompletion(ctx context.Context, c models.Completion) (*models.Statistics, error) {
	log := logger.FromContext(ctx)
	log.Debug("recording completion: user=%s, won=%t, score=%d", c.UserID, c.Won, c.Score)

	if c.UserID == "" {
		return nil, errors.NewValidationError("user_id", "cannot be empty")
	}
	if c.Mistakes < 0 || c.TimeTakenSeconds < 0 || c.Score < 0 {
		return nil, errors.NewValidationError("completion", fmt.Sprintf("negative value in %+v", c))
	}

	job := &recordCompletionJob{repo: s.statsRepo, c: c}
	if err := s.queue.Do(ctx, job); err != nil {
		log.Error("failed to record completion: %v", err)
		if errors.CodeOf(err) == "" {
			return nil, errors.NewStorageError("record completion", err)
		}
		return nil, err
	}
	return job.result, nil
}

// GetStatistics returns NOT_FOUND for a user with no completed games.
func (s *statsService) GetStatistics(ctx context.Context, userID string) (*models.Statistics, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting statistics: user=%s", userID)

	st, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get statistics: %v", err)
		return nil, wrap(err)
	}
	if st == nil {
		return nil, errors.NewNotFoundError("statistics", userID)
	}
	return st, nil
}
