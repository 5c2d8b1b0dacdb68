package repository

import (
	"context"

	"github.com/vytor/cryptogram/internal/models"
)

// QuoteRepository handles the quote catalogue. Quotes are never deleted;
// Retire clears is_active instead.
type QuoteRepository interface {
	// Random samples uniformly among active quotes, restricted to difficulty
	// unless it is empty. NOT_FOUND when nothing matches.
	Random(ctx context.Context, difficulty models.Difficulty) (*models.Quote, error)
	Add(ctx context.Context, quote models.NewQuote) (*models.Quote, error)
	Get(ctx context.Context, id int64) (*models.Quote, error)
	// List is ordered by difficulty (easy first) then text.
	List(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, error)
	Count(ctx context.Context, filter models.QuoteFilter) (int, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
	MarkUsed(ctx context.Context, id int64) error
	Retire(ctx context.Context, id int64) error
	ScheduleDaily(ctx context.Context, id int64, day string) error
	// Daily returns the quote scheduled for day, or nil when none is.
	Daily(ctx context.Context, day string) (*models.Quote, error)
}

// SessionRepository stores game sessions. At most one unfinished session
// exists at a time; finished ones remain as history.
type SessionRepository interface {
	// Save upserts s by session id and drops every other unfinished session.
	Save(ctx context.Context, s models.GameSession) error
	// LoadLatestUnfinished returns nil when no session is in flight.
	LoadLatestUnfinished(ctx context.Context) (*models.GameSession, error)
	Get(ctx context.Context, sessionID string) (*models.GameSession, error)
	// Clear removes an unfinished session. Completed sessions are kept.
	Clear(ctx context.Context, sessionID string) error
	// Finish marks a terminal session complete with its score and play time.
	Finish(ctx context.Context, sessionID string, score int, timeTakenSeconds float64) error
	Record(ctx context.Context, sessionID string) (*models.GameRecord, error)
	ListCompleted(ctx context.Context, limit int) ([]models.GameRecord, error)
}

// StatisticsRepository holds one aggregate row per user.
type StatisticsRepository interface {
	// RecordCompletion folds c into the user's row in a single transaction
	// and returns the updated row.
	RecordCompletion(ctx context.Context, c models.Completion) (*models.Statistics, error)
	// Get returns nil when the user has never completed a game.
	Get(ctx context.Context, userID string) (*models.Statistics, error)
}
