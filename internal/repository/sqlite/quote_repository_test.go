package sqlite_test

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
	"github.com/vytor/cryptogram/internal/repository/sqlite"
	"github.com/vytor/cryptogram/internal/testutil"
)

type QuoteRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.QuoteRepository
}

func (s *QuoteRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewQuoteRepository(s.db, rand.New(rand.NewSource(7)))
}

func (s *QuoteRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *QuoteRepositorySuite) add(text string, d models.Difficulty) *models.Quote {
	q, err := s.repo.Add(context.Background(), models.NewQuote{Text: text, Author: "Author " + text, Difficulty: d})
	s.Require().NoError(err)
	return q
}

func (s *QuoteRepositorySuite) TestAddAndGet() {
	ctx := context.Background()

	q, err := s.repo.Add(ctx, models.NewQuote{
		Text:        "Simplicity is prerequisite for reliability.",
		Author:      "Edsger W. Dijkstra",
		Attribution: "EWD498",
		Difficulty:  models.DifficultyHard,
	})
	s.Require().NoError(err)
	s.Assert().Greater(q.ID, int64(0))
	s.Assert().True(q.IsActive)
	s.Assert().False(q.IsDaily)
	s.Assert().Zero(q.TimesUsed)

	got, err := s.repo.Get(ctx, q.ID)
	s.Require().NoError(err)
	s.Assert().Equal("Edsger W. Dijkstra", got.Author)
	s.Assert().Equal("EWD498", got.Attribution)
	s.Assert().Equal(models.DifficultyHard, got.Difficulty)
}

func (s *QuoteRepositorySuite) TestAdd_Validation() {
	ctx := context.Background()
	tests := []models.NewQuote{
		{Text: "", Author: "a", Difficulty: models.DifficultyEasy},
		{Text: "t", Author: " ", Difficulty: models.DifficultyEasy},
		{Text: "t", Author: "a", Difficulty: "extreme"},
	}
	for _, nq := range tests {
		_, err := s.repo.Add(ctx, nq)
		s.Assert().True(errors.IsValidation(err), "%+v", nq)
	}
}

func (s *QuoteRepositorySuite) TestGet_NotFound() {
	q, err := s.repo.Get(context.Background(), 99999)
	s.Assert().Nil(q)
	s.Assert().True(errors.IsNotFound(err))
}

func (s *QuoteRepositorySuite) TestList_OrderedByDifficultyThenText() {
	s.add("zebra", models.DifficultyEasy)
	s.add("beta", models.DifficultyHard)
	s.add("apple", models.DifficultyMedium)
	s.add("alpha", models.DifficultyHard)
	s.add("mango", models.DifficultyEasy)

	quotes, err := s.repo.List(context.Background(), models.QuoteFilter{})
	s.Require().NoError(err)

	var texts []string
	for _, q := range quotes {
		texts = append(texts, q.Text)
	}
	s.Assert().Equal([]string{"mango", "zebra", "apple", "alpha", "beta"}, texts)
}

func (s *QuoteRepositorySuite) TestList_Filters() {
	ctx := context.Background()
	s.add("one", models.DifficultyEasy)
	retired := s.add("two", models.DifficultyEasy)
	s.add("three", models.DifficultyHard)
	s.Require().NoError(s.repo.Retire(ctx, retired.ID))

	easy, err := s.repo.List(ctx, models.QuoteFilter{Difficulty: models.DifficultyEasy})
	s.Require().NoError(err)
	s.Assert().Len(easy, 1)

	all, err := s.repo.List(ctx, models.QuoteFilter{IncludeInactive: true})
	s.Require().NoError(err)
	s.Assert().Len(all, 3)

	page, err := s.repo.List(ctx, models.QuoteFilter{IncludeInactive: true, Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Assert().Equal("two", page[0].Text)

	count, err := s.repo.Count(ctx, models.QuoteFilter{})
	s.Require().NoError(err)
	s.Assert().Equal(2, count)
}

func (s *QuoteRepositorySuite) TestRandom_EmptyIsNotFound() {
	_, err := s.repo.Random(context.Background(), "")
	s.Assert().True(errors.IsNotFound(err))

	s.add("easy one", models.DifficultyEasy)
	_, err = s.repo.Random(context.Background(), models.DifficultyHard)
	s.Assert().True(errors.IsNotFound(err))
}

func (s *QuoteRepositorySuite) TestRandom_RespectsDifficultyAndActive() {
	ctx := context.Background()
	s.add("easy one", models.DifficultyEasy)
	hard := s.add("hard one", models.DifficultyHard)
	retired := s.add("hard two", models.DifficultyHard)
	s.Require().NoError(s.repo.Retire(ctx, retired.ID))

	for i := 0; i < 20; i++ {
		q, err := s.repo.Random(ctx, models.DifficultyHard)
		s.Require().NoError(err)
		s.Assert().Equal(hard.ID, q.ID)
	}
}

func (s *QuoteRepositorySuite) TestRandom_CoversAllActiveQuotes() {
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c", "d"} {
		s.add(text, models.DifficultyMedium)
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		q, err := s.repo.Random(ctx, "")
		s.Require().NoError(err)
		seen[q.Text] = true
	}
	s.Assert().Len(seen, 4)
}

func (s *QuoteRepositorySuite) TestMarkUsed() {
	ctx := context.Background()
	q := s.add("used", models.DifficultyEasy)

	s.Require().NoError(s.repo.MarkUsed(ctx, q.ID))
	s.Require().NoError(s.repo.MarkUsed(ctx, q.ID))

	got, err := s.repo.Get(ctx, q.ID)
	s.Require().NoError(err)
	s.Assert().Equal(2, got.TimesUsed)

	s.Assert().True(errors.IsNotFound(s.repo.MarkUsed(ctx, 12345)))
}

func (s *QuoteRepositorySuite) TestRetire_KeepsRow() {
	ctx := context.Background()
	q := s.add("retired", models.DifficultyEasy)

	s.Require().NoError(s.repo.Retire(ctx, q.ID))

	got, err := s.repo.Get(ctx, q.ID)
	s.Require().NoError(err)
	s.Assert().False(got.IsActive)

	ids, err := s.repo.ActiveIDs(ctx)
	s.Require().NoError(err)
	s.Assert().Empty(ids)
}

func (s *QuoteRepositorySuite) TestScheduleDaily() {
	ctx := context.Background()
	first := s.add("first", models.DifficultyEasy)
	second := s.add("second", models.DifficultyEasy)

	none, err := s.repo.Daily(ctx, "2024-03-01")
	s.Require().NoError(err)
	s.Assert().Nil(none)

	s.Require().NoError(s.repo.ScheduleDaily(ctx, first.ID, "2024-03-01"))
	daily, err := s.repo.Daily(ctx, "2024-03-01")
	s.Require().NoError(err)
	s.Require().NotNil(daily)
	s.Assert().Equal(first.ID, daily.ID)
	s.Assert().True(daily.IsDaily)
	s.Assert().Equal("2024-03-01", daily.DailyDate)

	// Rescheduling the day moves it to the new quote.
	s.Require().NoError(s.repo.ScheduleDaily(ctx, second.ID, "2024-03-01"))
	daily, err = s.repo.Daily(ctx, "2024-03-01")
	s.Require().NoError(err)
	s.Assert().Equal(second.ID, daily.ID)

	prev, err := s.repo.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.Assert().False(prev.IsDaily)
	s.Assert().Empty(prev.DailyDate)
}

func (s *QuoteRepositorySuite) TestScheduleDaily_Errors() {
	ctx := context.Background()
	q := s.add("q", models.DifficultyEasy)

	s.Assert().True(errors.IsValidation(s.repo.ScheduleDaily(ctx, q.ID, "03/01/2024")))
	s.Assert().True(errors.IsNotFound(s.repo.ScheduleDaily(ctx, 999, "2024-03-01")))
}

func TestQuoteRepositorySuite(t *testing.T) {
	suite.Run(t, new(QuoteRepositorySuite))
}
