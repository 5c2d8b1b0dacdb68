package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
)

var quoteColumns = []string{
	"id", "text", "author", "attribution", "difficulty", "is_daily", "daily_date",
	"is_active", "times_used", "created_at",
}

const difficultyOrder = "CASE difficulty WHEN 'easy' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"

type quoteRepository struct {
	db *sql.DB

	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuoteRepository creates a new QuoteRepository implementation. rng
// drives Random; nil seeds one from the clock.
func NewQuoteRepository(db *sql.DB, rng *rand.Rand) repository.QuoteRepository {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &quoteRepository{db: db, rng: rng}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*models.Quote, error) {
	var (
		q           models.Quote
		attribution sql.NullString
		dailyDate   sql.NullString
	)
	err := row.Scan(&q.ID, &q.Text, &q.Author, &attribution, &q.Difficulty, &q.IsDaily, &dailyDate,
		&q.IsActive, &q.TimesUsed, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Attribution = attribution.String
	q.DailyDate = dailyDate.String
	return &q, nil
}

func applyQuoteFilter(query squirrel.SelectBuilder, filter models.QuoteFilter) squirrel.SelectBuilder {
	if !filter.IncludeInactive {
		query = query.Where(squirrel.Eq{"is_active": 1})
	}
	if filter.Difficulty != "" {
		query = query.Where(squirrel.Eq{"difficulty": string(filter.Difficulty)})
	}
	if filter.Author != "" {
		query = query.Where(squirrel.Eq{"author": filter.Author})
	}
	return query
}

func (r *quoteRepository) Random(ctx context.Context, difficulty models.Difficulty) (*models.Quote, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("picking random quote: difficulty=%q", difficulty)

	filter := models.QuoteFilter{Difficulty: difficulty}
	var quote *models.Quote
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		countSQL, countArgs, err := applyQuoteFilter(sqlBuilder.Select("COUNT(*)").From("quotes"), filter).ToSql()
		if err != nil {
			return err
		}
		var count int
		if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&count); err != nil {
			return storageErr("count quotes", err)
		}
		if count == 0 {
			what := "active quote"
			if difficulty != "" {
				what = string(difficulty) + " quote"
			}
			return errors.NewNotFoundError(what, "any")
		}

		query, args, err := applyQuoteFilter(sqlBuilder.Select(quoteColumns...).From("quotes"), filter).
			OrderBy("id").
			Limit(1).
			Offset(uint64(r.intn(count))).
			ToSql()
		if err != nil {
			return err
		}
		quote, err = scanQuote(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return storageErr("pick quote", err)
		}
		return nil
	})
	if err != nil {
		if !errors.IsNotFound(err) {
			log.Error("failed to pick random quote: %v", err)
		}
		return nil, err
	}
	log.Debug("picked quote: id=%d", quote.ID)
	return quote, nil
}

func (r *quoteRepository) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *quoteRepository) Add(ctx context.Context, nq models.NewQuote) (*models.Quote, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("adding quote: author=%s, difficulty=%s", nq.Author, nq.Difficulty)

	if strings.TrimSpace(nq.Text) == "" {
		return nil, errors.NewValidationError("text", "cannot be empty")
	}
	if strings.TrimSpace(nq.Author) == "" {
		return nil, errors.NewValidationError("author", "cannot be empty")
	}
	if !nq.Difficulty.Valid() {
		return nil, errors.NewValidationError("difficulty", "must be easy, medium or hard")
	}

	query, args, err := sqlBuilder.Insert("quotes").
		Columns("text", "author", "attribution", "difficulty").
		Values(nq.Text, nq.Author, nullString(nq.Attribution), string(nq.Difficulty)).
		ToSql()
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to insert quote: %v", err)
		return nil, storageErr("insert quote", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("insert quote", err)
	}
	log.Info("quote added: id=%d", id)
	return r.Get(ctx, id)
}

func (r *quoteRepository) Get(ctx context.Context, id int64) (*models.Quote, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("getting quote: id=%d", id)

	query, args, err := sqlBuilder.Select(quoteColumns...).From("quotes").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	q, err := scanQuote(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			log.Debug("quote not found: id=%d", id)
			return nil, errors.NewNotFoundError("quote", id)
		}
		log.Error("failed to get quote: %v", err)
		return nil, storageErr("get quote", err)
	}
	return q, nil
}

func (r *quoteRepository) List(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("listing quotes: difficulty=%q, author=%q, include_inactive=%t, limit=%d, offset=%d",
		filter.Difficulty, filter.Author, filter.IncludeInactive, filter.Limit, filter.Offset)

	builder := applyQuoteFilter(sqlBuilder.Select(quoteColumns...).From("quotes"), filter).
		OrderBy(difficultyOrder, "text", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			builder = builder.Offset(uint64(filter.Offset))
		}
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list quotes: %v", err)
		return nil, storageErr("list quotes", err)
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			log.Error("failed to scan quote row: %v", err)
			return nil, storageErr("list quotes", err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list quotes", err)
	}
	log.Debug("found %d quotes", len(quotes))
	return quotes, nil
}

func (r *quoteRepository) Count(ctx context.Context, filter models.QuoteFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")

	query, args, err := applyQuoteFilter(sqlBuilder.Select("COUNT(*)").From("quotes"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Error("failed to count quotes: %v", err)
		return 0, storageErr("count quotes", err)
	}
	log.Debug("quote count: %d", count)
	return count, nil
}

func (r *quoteRepository) ActiveIDs(ctx context.Context) ([]int64, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")

	query, args, err := sqlBuilder.Select("id").From("quotes").
		Where(squirrel.Eq{"is_active": 1}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list active quote ids: %v", err)
		return nil, storageErr("list active quotes", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("list active quotes", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list active quotes", err)
	}
	return ids, nil
}

func (r *quoteRepository) update(ctx context.Context, op string, id int64, set map[string]any) error {
	query, args, err := sqlBuilder.Update("quotes").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return errors.NewNotFoundError("quote", id)
	}
	return nil
}

func (r *quoteRepository) MarkUsed(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("marking quote used: id=%d", id)

	err := r.update(ctx, "mark quote used", id, map[string]any{
		"times_used": squirrel.Expr("times_used + 1"),
	})
	if err != nil && !errors.IsNotFound(err) {
		log.Error("failed to mark quote used: %v", err)
	}
	return err
}

func (r *quoteRepository) Retire(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("retiring quote: id=%d", id)

	err := r.update(ctx, "retire quote", id, map[string]any{"is_active": 0})
	if err != nil {
		if !errors.IsNotFound(err) {
			log.Error("failed to retire quote: %v", err)
		}
		return err
	}
	log.Info("quote retired: id=%d", id)
	return nil
}

func (r *quoteRepository) ScheduleDaily(ctx context.Context, id int64, day string) error {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("scheduling daily quote: id=%d, day=%s", id, day)

	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return errors.NewValidationError("day", "must be YYYY-MM-DD")
	}

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		// A day holds at most one quote; the previous holder is unscheduled.
		if _, err := tx.ExecContext(ctx, `UPDATE quotes SET is_daily = 0, daily_date = NULL WHERE daily_date = ? AND id != ?`, day, id); err != nil {
			return storageErr("schedule daily quote", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE quotes SET is_daily = 1, daily_date = ? WHERE id = ?`, day, id)
		if err != nil {
			return storageErr("schedule daily quote", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("schedule daily quote", err)
		}
		if n == 0 {
			return errors.NewNotFoundError("quote", id)
		}
		return nil
	})
	if err != nil {
		if !errors.IsNotFound(err) {
			log.Error("failed to schedule daily quote: %v", err)
		}
		return err
	}
	log.Info("quote %d scheduled for %s", id, day)
	return nil
}

func (r *quoteRepository) Daily(ctx context.Context, day string) (*models.Quote, error) {
	log := logger.FromContext(ctx).WithPrefix("quote_repo")
	log.Debug("looking up daily quote: day=%s", day)

	query, args, err := sqlBuilder.Select(quoteColumns...).From("quotes").
		Where(squirrel.Eq{"daily_date": day, "is_daily": 1, "is_active": 1}).
		ToSql()
	if err != nil {
		return nil, err
	}
	q, err := scanQuote(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error("failed to get daily quote: %v", err)
		return nil, storageErr("get daily quote", err)
	}
	return q, nil
}
