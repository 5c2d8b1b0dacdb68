package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
)

// QuoteService handles the quote catalogue
type QuoteService interface {
	RandomQuote(ctx context.Context, difficulty models.Difficulty) (*models.Quote, error)
	AddQuote(ctx context.Context, quote models.NewQuote) (*models.Quote, error)
	GetQuote(ctx context.Context, id int64) (*models.Quote, error)
	ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, int, error)
	MarkUsed(ctx context.Context, id int64) error
	RetireQuote(ctx context.Context, id int64) error
	ScheduleDaily(ctx context.Context, id int64, day time.Time) error
	DailyQuote(ctx context.Context, day time.Time) (*models.Quote, error)
}

type quoteService struct {
	quoteRepo repository.QuoteRepository
	salt      string
}

// NewQuoteService creates a new QuoteService. salt keys the daily quote
// selection.
func NewQuoteService(quoteRepo repository.QuoteRepository, salt string) QuoteService {
	return &quoteService{quoteRepo: quoteRepo, salt: salt}
}

func (s *quoteService) RandomQuote(ctx context.Context, difficulty models.Difficulty) (*models.Quote, error) {
	log := logger.FromContext(ctx)
	log.Debug("random quote: difficulty=%q", difficulty)

	if difficulty != "" && !difficulty.Valid() {
		return nil, errors.NewValidationError("difficulty", "must be easy, medium or hard")
	}
	q, err := s.quoteRepo.Random(ctx, difficulty)
	if err != nil {
		if !errors.IsNotFound(err) {
			log.Error("failed to pick quote: %v", err)
		}
		return nil, wrap(err)
	}
	return q, nil
}

func (s *quoteService) AddQuote(ctx context.Context, nq models.NewQuote) (*models.Quote, error) {
	log := logger.FromContext(ctx)
	log.Debug("adding quote by %s", nq.Author)

	nq.Text = strings.TrimSpace(nq.Text)
	nq.Author = strings.TrimSpace(nq.Author)
	nq.Attribution = strings.TrimSpace(nq.Attribution)
	if nq.Difficulty == "" {
		nq.Difficulty = models.DifficultyMedium
	}
	if !utf8.ValidString(nq.Text) {
		return nil, errors.NewInvalidQuoteError("text is not valid UTF-8")
	}
	if strings.IndexFunc(nq.Text, cipher.IsLetter) < 0 {
		return nil, errors.NewInvalidQuoteError("text has no letters to encrypt")
	}

	q, err := s.quoteRepo.Add(ctx, nq)
	if err != nil {
		log.Error("failed to add quote: %v", err)
		return nil, wrap(err)
	}
	log.Info("quote added: id=%d", q.ID)
	return q, nil
}

func (s *quoteService) GetQuote(ctx context.Context, id int64) (*models.Quote, error) {
	q, err := s.quoteRepo.Get(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	return q, nil
}

func (s *quoteService) ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, int, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing quotes: difficulty=%q, limit=%d, offset=%d", filter.Difficulty, filter.Limit, filter.Offset)

	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, 0, errors.NewValidationError("difficulty", "must be easy, medium or hard")
	}
	quotes, err := s.quoteRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list quotes: %v", err)
		return nil, 0, wrap(err)
	}
	total, err := s.quoteRepo.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count quotes: %v", err)
		return nil, 0, wrap(err)
	}
	return quotes, total, nil
}

func (s *quoteService) MarkUsed(ctx context.Context, id int64) error {
	return wrap(s.quoteRepo.MarkUsed(ctx, id))
}

func (s *quoteService) RetireQuote(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("retiring quote: id=%d", id)
	return wrap(s.quoteRepo.Retire(ctx, id))
}

func (s *quoteService) ScheduleDaily(ctx context.Context, id int64, day time.Time) error {
	log := logger.FromContext(ctx)
	log.Debug("scheduling quote %d for %s", id, DateKey(day))
	return wrap(s.quoteRepo.ScheduleDaily(ctx, id, DateKey(day)))
}

// DailyQuote returns the quote scheduled for day, falling back to a
// deterministic pick among the active quotes.
func (s *quoteService) DailyQuote(ctx context.Context, day time.Time) (*models.Quote, error) {
	log := logger.FromContext(ctx)
	key := DateKey(day)
	log.Debug("daily quote: day=%s", key)

	q, err := s.quoteRepo.Daily(ctx, key)
	if err != nil {
		log.Error("failed to look up daily quote: %v", err)
		return nil, wrap(err)
	}
	if q != nil {
		return q, nil
	}

	ids, err := s.quoteRepo.ActiveIDs(ctx)
	if err != nil {
		log.Error("failed to list active quotes: %v", err)
		return nil, wrap(err)
	}
	if len(ids) == 0 {
		return nil, errors.NewNotFoundError("daily quote", key)
	}
	id := ids[DailyIndex(day, s.salt, len(ids))]
	log.Debug("daily quote for %s derived: id=%d", key, id)
	q, err = s.quoteRepo.Get(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	return q, nil
}
