package services

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
	"github.com/vytor/cryptogram/internal/scoring"
)

// GameService drives a game session: it applies engine transitions and
// persists each snapshot. Reaching a terminal state scores the game and
// records it in the player's statistics.
type GameService interface {
	Start(ctx context.Context, difficulty models.Difficulty) (*models.GameSession, error)
	StartDaily(ctx context.Context, day time.Time) (*models.GameSession, error)
	Current(ctx context.Context) (*models.GameSession, error)
	Get(ctx context.Context, sessionID string) (*models.GameSession, error)
	Select(ctx context.Context, sessionID string, cipherLetter rune) (*Outcome, error)
	Guess(ctx context.Context, sessionID string, plainLetter rune) (*Outcome, error)
	Hint(ctx context.Context, sessionID string) (*Outcome, error)
	// Complete records a terminal session whose completion was not stored,
	// typically after a failed statistics write.
	Complete(ctx context.Context, sessionID string) (*Outcome, error)
	Clear(ctx context.Context, sessionID string) error
	History(ctx context.Context, limit int) ([]models.GameRecord, error)
}

// Outcome is the result of one move.
type Outcome struct {
	Session    models.GameSession `json:"session"`
	Correct    bool               `json:"correct"`
	Reveal     *cipher.Reveal     `json:"reveal,omitempty"`
	Finished   bool               `json:"finished"`
	Score      int                `json:"score"`
	Statistics *models.Statistics `json:"statistics,omitempty"`
}

// GameOptions configures a GameService.
type GameOptions struct {
	UserID string
	// MaxMistakes overrides the difficulty's budget when positive.
	MaxMistakes int
}

type gameService struct {
	engine      *cipher.Engine
	quotes      QuoteService
	sessionRepo repository.SessionRepository
	stats       StatsService
	opts        GameOptions

	// Guards the engine's random source and serializes load-apply-save.
	mu sync.Mutex
}

// NewGameService creates a new GameService
func NewGameService(engine *cipher.Engine, quotes QuoteService, sessionRepo repository.SessionRepository, stats StatsService, opts GameOptions) GameService {
	if opts.UserID == "" {
		opts.UserID = "local"
	}
	return &gameService{
		engine:      engine,
		quotes:      quotes,
		sessionRepo: sessionRepo,
		stats:       stats,
		opts:        opts,
	}
}

func (s *gameService) Start(ctx context.Context, difficulty models.Difficulty) (*models.GameSession, error) {
	log := logger.FromContext(ctx)
	log.Debug("starting game: difficulty=%q", difficulty)

	quote, err := s.quotes.RandomQuote(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	return s.startWith(ctx, quote)
}

func (s *gameService) StartDaily(ctx context.Context, day time.Time) (*models.GameSession, error) {
	log := logger.FromContext(ctx)
	log.Debug("starting daily game: day=%s", DateKey(day))

	quote, err := s.quotes.DailyQuote(ctx, day)
	if err != nil {
		return nil, err
	}
	return s.startWith(ctx, quote)
}

func (s *gameService) startWith(ctx context.Context, quote *models.Quote) (*models.GameSession, error) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.engine.StartSession(*quote, s.opts.MaxMistakes)
	if err != nil {
		log.Warn("quote %d cannot be played: %v", quote.ID, err)
		return nil, wrap(err)
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		log.Error("failed to save new session: %v", err)
		return nil, wrap(err)
	}
	// The session exists now; a missed usage count does not undo it.
	if err := s.quotes.MarkUsed(ctx, quote.ID); err != nil {
		log.Warn("failed to mark quote %d used: %v", quote.ID, err)
	}
	log.Info("game started: session=%s, quote=%d, max_mistakes=%d", session.SessionID, quote.ID, session.MaxMistakes)
	return &session, nil
}

func (s *gameService) Current(ctx context.Context) (*models.GameSession, error) {
	session, err := s.sessionRepo.LoadLatestUnfinished(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load current session: %v", err)
		return nil, wrap(err)
	}
	if session == nil {
		return nil, errors.NewNotFoundError("session", "current")
	}
	return session, nil
}

func (s *gameService) Get(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, wrap(err)
	}
	return session, nil
}

func (s *gameService) Select(ctx context.Context, sessionID string, cipherLetter rune) (*Outcome, error) {
	return s.apply(ctx, sessionID, "select", func(session models.GameSession) Outcome {
		return Outcome{Session: s.engine.SelectLetter(session, cipherLetter)}
	})
}

func (s *gameService) Guess(ctx context.Context, sessionID string, plainLetter rune) (*Outcome, error) {
	return s.apply(ctx, sessionID, "guess", func(session models.GameSession) Outcome {
		next, correct := s.engine.Guess(session, plainLetter)
		return Outcome{Session: next, Correct: correct}
	})
}

func (s *gameService) Hint(ctx context.Context, sessionID string) (*Outcome, error) {
	return s.apply(ctx, sessionID, "hint", func(session models.GameSession) Outcome {
		next, reveal := s.engine.Hint(session)
		return Outcome{Session: next, Reveal: reveal}
	})
}

// apply loads a session, runs one transition, saves the result and settles
// a game that just ended. Terminal sessions are returned without a write.
func (s *gameService) apply(ctx context.Context, sessionID, op string, move func(models.GameSession) Outcome) (*Outcome, error) {
	log := logger.FromContext(ctx).WithField("session", sessionID)
	log.Debug("applying %s", op)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, wrap(err)
	}
	if current.IsTerminal() {
		log.Debug("%s ignored: session is over", op)
		return &Outcome{Session: *current}, nil
	}

	out := move(*current)
	if err := s.sessionRepo.Save(ctx, out.Session); err != nil {
		log.Error("failed to save session after %s: %v", op, err)
		return nil, wrap(err)
	}
	if !out.Session.IsTerminal() {
		return &out, nil
	}

	log.Info("game over: won=%t, mistakes=%d/%d", out.Session.HasWon, out.Session.Mistakes, out.Session.MaxMistakes)
	return &out, s.settle(ctx, &out)
}

// settle scores a terminal session, folds it into the statistics and marks
// the stored game complete. The statistics write happens first; if it fails
// the game stays incomplete so Complete can retry it.
func (s *gameService) settle(ctx context.Context, out *Outcome) error {
	log := logger.FromContext(ctx)
	session := out.Session

	out.Score = scoring.ComputeScore(session)
	elapsed := session.Elapsed().Seconds()

	st, err := s.stats.RecordCompletion(ctx, models.Completion{
		UserID:           s.opts.UserID,
		Won:              session.HasWon,
		Mistakes:         session.Mistakes,
		TimeTakenSeconds: elapsed,
		Score:            out.Score,
		PlayedAt:         session.LastUpdatedAt,
	})
	if err != nil {
		log.Error("statistics not updated for session %s: %v", session.SessionID, err)
		return err
	}
	out.Statistics = st

	if err := s.sessionRepo.Finish(ctx, session.SessionID, out.Score, elapsed); err != nil {
		log.Error("failed to mark session %s complete: %v", session.SessionID, err)
		return wrap(err)
	}
	out.Finished = true
	return nil
}

func (s *gameService) Complete(ctx context.Context, sessionID string) (*Outcome, error) {
	log := logger.FromContext(ctx).WithField("session", sessionID)
	log.Debug("completing session")

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, wrap(err)
	}
	if !session.IsTerminal() {
		return nil, errors.NewBadRequestError("session is still in progress")
	}
	record, err := s.sessionRepo.Record(ctx, sessionID)
	if err != nil {
		return nil, wrap(err)
	}
	if record.IsComplete {
		return &Outcome{Session: *session, Finished: true, Score: record.Score}, nil
	}

	out := &Outcome{Session: *session}
	return out, s.settle(ctx, out)
}

func (s *gameService) Clear(ctx context.Context, sessionID string) error {
	log := logger.FromContext(ctx)
	log.Debug("clearing session: %s", sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	return wrap(s.sessionRepo.Clear(ctx, sessionID))
}

func (s *gameService) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	records, err := s.sessionRepo.ListCompleted(ctx, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list history: %v", err)
		return nil, wrap(err)
	}
	return records, nil
}
