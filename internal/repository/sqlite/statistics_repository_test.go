package sqlite_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
	"github.com/vytor/cryptogram/internal/repository/sqlite"
	"github.com/vytor/cryptogram/internal/testutil"
)

type StatisticsRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.StatisticsRepository
}

func (s *StatisticsRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewStatisticsRepository(s.db)
}

func (s *StatisticsRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

var playedAt = time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)

func (s *StatisticsRepositorySuite) TestGet_Absent() {
	st, err := s.repo.Get(context.Background(), "nobody")
	s.Require().NoError(err)
	s.Assert().Nil(st)
}

func (s *StatisticsRepositorySuite) TestFirstCompletion() {
	ctx := context.Background()
	for _, won := range []bool{true, false} {
		user := "loser"
		if won {
			user = "winner"
		}
		_, err := s.repo.RecordCompletion(ctx, models.Completion{UserID: user, Won: won, Mistakes: 1, TimeTakenSeconds: 10, PlayedAt: playedAt})
		s.Require().NoError(err)

		st, err := s.repo.Get(ctx, user)
		s.Require().NoError(err)
		s.Require().NotNil(st)
		s.Assert().Equal(1, st.GamesPlayed)
		if won {
			s.Assert().Equal(1, st.GamesWon)
		} else {
			s.Assert().Equal(0, st.GamesWon)
		}
	}
}

func (s *StatisticsRepositorySuite) TestWinThenLoss() {
	ctx := context.Background()

	_, err := s.repo.RecordCompletion(ctx, models.Completion{
		UserID: "local", Won: true, Score: 100, Mistakes: 2, TimeTakenSeconds: 60, PlayedAt: playedAt,
	})
	s.Require().NoError(err)
	updated, err := s.repo.RecordCompletion(ctx, models.Completion{
		UserID: "local", Won: false, Mistakes: 5, TimeTakenSeconds: 90, PlayedAt: playedAt.Add(time.Hour),
	})
	s.Require().NoError(err)

	st, err := s.repo.Get(ctx, "local")
	s.Require().NoError(err)
	s.Require().NotNil(st)
	s.Assert().Equal(st.GamesPlayed, updated.GamesPlayed)
	s.Assert().Equal(st.BestStreak, updated.BestStreak)
	s.Assert().Equal(st.AverageTime, updated.AverageTime)

	s.Assert().Equal(2, st.GamesPlayed)
	s.Assert().Equal(1, st.GamesWon)
	s.Assert().Equal(0, st.CurrentStreak)
	s.Assert().Equal(1, st.BestStreak)
	s.Assert().Equal(100, st.TotalScore)
	s.Assert().InDelta(3.5, st.AverageMistakes, 1e-9)
	s.Assert().InDelta(75.0, st.AverageTime, 1e-9)
	s.Assert().True(playedAt.Add(time.Hour).Equal(st.LastPlayedDate))
}

func (s *StatisticsRepositorySuite) TestUsersAreIndependent() {
	ctx := context.Background()
	_, err := s.repo.RecordCompletion(ctx, models.Completion{UserID: "a", Won: true, Score: 5, PlayedAt: playedAt})
	s.Require().NoError(err)
	_, err = s.repo.RecordCompletion(ctx, models.Completion{UserID: "b", Won: false, PlayedAt: playedAt})
	s.Require().NoError(err)

	a, err := s.repo.Get(ctx, "a")
	s.Require().NoError(err)
	b, err := s.repo.Get(ctx, "b")
	s.Require().NoError(err)
	s.Assert().Equal(1, a.CurrentStreak)
	s.Assert().Equal(0, b.CurrentStreak)
	s.Assert().Equal(5, a.TotalScore)
	s.Assert().Zero(b.TotalScore)
}

func (s *StatisticsRepositorySuite) TestFailedWriteLeavesRowUntouched() {
	ctx := context.Background()
	_, err := s.repo.RecordCompletion(ctx, models.Completion{UserID: "local", Won: true, Score: 40, Mistakes: 1, TimeTakenSeconds: 30, PlayedAt: playedAt})
	s.Require().NoError(err)
	before, err := s.repo.Get(ctx, "local")
	s.Require().NoError(err)

	_, err = s.db.Exec(`CREATE TRIGGER statistics_readonly BEFORE UPDATE ON statistics BEGIN SELECT RAISE(ABORT, 'disk is read-only'); END`)
	s.Require().NoError(err)

	_, err = s.repo.RecordCompletion(ctx, models.Completion{UserID: "local", Won: false, Mistakes: 4, TimeTakenSeconds: 80, PlayedAt: playedAt})
	s.Require().Error(err)
	s.Assert().True(errors.IsStorage(err))

	after, err := s.repo.Get(ctx, "local")
	s.Require().NoError(err)
	s.Assert().Equal(before.GamesPlayed, after.GamesPlayed)
	s.Assert().Equal(before.CurrentStreak, after.CurrentStreak)
	s.Assert().Equal(before.AverageMistakes, after.AverageMistakes)
	s.Assert().Equal(before.AverageTime, after.AverageTime)
}

func (s *StatisticsRepositorySuite) TestConcurrentCompletionsAreSerialized() {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.repo.RecordCompletion(ctx, models.Completion{
				UserID: "local", Won: true, Score: 10, Mistakes: i % 3, TimeTakenSeconds: 30, PlayedAt: playedAt,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	st, err := s.repo.Get(ctx, "local")
	s.Require().NoError(err)
	s.Assert().Equal(n, st.GamesPlayed)
	s.Assert().Equal(n, st.GamesWon)
	s.Assert().Equal(n, st.BestStreak)
	s.Assert().Equal(10*n, st.TotalScore)
	s.Assert().InDelta(30.0, st.AverageTime, 1e-9)
	// i%3 over 0..19: seven 0s, seven 1s, six 2s.
	s.Assert().InDelta(19.0/20.0, st.AverageMistakes, 1e-9)
}

func TestStatisticsRepositorySuite(t *testing.T) {
	suite.Run(t, new(StatisticsRepositorySuite))
}
