package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
	"github.com/vytor/cryptogram/internal/stats"
)

const statisticsSelect = `
SELECT user_id, games_played, games_won, current_streak, best_streak, total_score,
       average_mistakes, average_time, last_played_date
FROM statistics
WHERE user_id = ?
`

type statisticsRepository struct {
	db *sql.DB
}

// NewStatisticsRepository creates a new StatisticsRepository implementation
func NewStatisticsRepository(db *sql.DB) repository.StatisticsRepository {
	return &statisticsRepository{db: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getStatistics(ctx context.Context, q queryRower, userID string) (*models.Statistics, error) {
	var (
		s          models.Statistics
		lastPlayed sql.NullTime
	)
	err := q.QueryRowContext(ctx, statisticsSelect, userID).Scan(&s.UserID, &s.GamesPlayed, &s.GamesWon,
		&s.CurrentStreak, &s.BestStreak, &s.TotalScore, &s.AverageMistakes, &s.AverageTime, &lastPlayed)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		s.LastPlayedDate = lastPlayed.Time
	}
	return &s, nil
}

func (r *statisticsRepository) RecordCompletion(ctx context.Context, c models.Completion) (*models.Statistics, error) {
	log := logger.FromContext(ctx).WithPrefix("statistics_repo")
	log.Debug("recording completion: user=%s, won=%t, mistakes=%d, time=%.1fs, score=%d",
		c.UserID, c.Won, c.Mistakes, c.TimeTakenSeconds, c.Score)

	var updated models.Statistics
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		prev, err := getStatistics(ctx, tx, c.UserID)
		if err != nil {
			return storageErr("read statistics", err)
		}
		updated = stats.Apply(prev, c)

		_, err = tx.ExecContext(ctx, `
INSERT INTO statistics (user_id, games_played, games_won, current_streak, best_streak, total_score,
                        average_mistakes, average_time, last_played_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    games_played = excluded.games_played,
    games_won = excluded.games_won,
    current_streak = excluded.current_streak,
    best_streak = excluded.best_streak,
    total_score = excluded.total_score,
    average_mistakes = excluded.average_mistakes,
    average_time = excluded.average_time,
    last_played_date = excluded.last_played_date
`, updated.UserID, updated.GamesPlayed, updated.GamesWon, updated.CurrentStreak, updated.BestStreak,
			updated.TotalScore, updated.AverageMistakes, updated.AverageTime, nullTime(updated.LastPlayedDate))
		if err != nil {
			return storageErr("write statistics", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to record completion: %v", err)
		return nil, err
	}
	log.Info("statistics updated: user=%s, played=%d, won=%d, streak=%d",
		updated.UserID, updated.GamesPlayed, updated.GamesWon, updated.CurrentStreak)
	return &updated, nil
}

func (r *statisticsRepository) Get(ctx context.Context, userID string) (*models.Statistics, error) {
	log := logger.FromContext(ctx).WithPrefix("statistics_repo")
	log.Debug("getting statistics: user=%s", userID)

	s, err := getStatistics(ctx, r.db, userID)
	if err != nil {
		log.Error("failed to get statistics: %v", err)
		return nil, storageErr("get statistics", err)
	}
	if s == nil {
		log.Debug("no statistics for user=%s", userID)
	}
	return s, nil
}
