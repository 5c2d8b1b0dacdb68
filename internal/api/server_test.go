package api

import (
	"bytes"
	"context"
	"database/sql"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository/sqlite"
	"github.com/vytor/cryptogram/internal/services"
	"github.com/vytor/cryptogram/internal/testutil"
	"github.com/vytor/cryptogram/internal/worker"
)

type ServerSuite struct {
	suite.Suite
	db      *sql.DB
	pool    *worker.Pool
	server  *Server
	handler http.Handler
	quoteID int64
}

func (s *ServerSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.pool = worker.NewPool(1, 4)
	s.pool.Start(context.Background())

	quotes := services.NewQuoteService(sqlite.NewQuoteRepository(s.db, rand.New(rand.NewSource(5))), "salt")
	stats := services.NewStatsService(sqlite.NewStatisticsRepository(s.db), s.pool)
	ids := 0
	engine := cipher.New(
		cipher.WithSeed(7),
		cipher.WithClock(testutil.NewClock().Now),
		cipher.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("http-%d", ids)
		}),
	)
	games := services.NewGameService(engine, quotes, sqlite.NewSessionRepository(s.db), stats,
		services.GameOptions{UserID: "local"})

	q, err := quotes.AddQuote(context.Background(), models.NewQuote{
		Text: "Less is more.", Author: "Robert Browning", Difficulty: models.DifficultyEasy,
	})
	s.Require().NoError(err)
	s.quoteID = q.ID

	s.server = &Server{
		GameService:  games,
		QuoteService: quotes,
		StatsService: stats,
		DB:           s.db,
		WriteQueue:   s.pool,
		UserID:       "local",
		Now:          func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
	s.handler = s.server.Routes()
}

func (s *ServerSuite) TearDownTest() {
	s.pool.Stop()
	testutil.MustClose(s.T(), s.db)
}

func (s *ServerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ServerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	s.decode(rec, &body)
	return body.Error.Code
}

func (s *ServerSuite) start() sessionView {
	rec := s.do(http.MethodPost, "/api/sessions", `{"difficulty":"easy"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var v sessionView
	s.decode(rec, &v)
	return v
}

func (s *ServerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(http.MethodGet, "/ready", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body readiness
	s.decode(rec, &body)
	s.Equal("ready", body.Status)
	s.Equal(0, body.PendingWrites)
}

func (s *ServerSuite) TestStartHidesPlaintext() {
	v := s.start()

	s.Equal("http-1", v.SessionID)
	s.Equal(s.quoteID, v.QuoteID)
	s.Empty(v.Plaintext)
	s.NotContains(v.Ciphertext, "Less")
	s.Equal(5, v.MistakesLeft)
	s.NotEmpty(v.CipherLetters)
	s.Empty(v.Revealed)

	rec := s.do(http.MethodGet, "/api/sessions/current", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var current sessionView
	s.decode(rec, &current)
	s.Equal(v.SessionID, current.SessionID)
}

func (s *ServerSuite) TestStartRejectsUnknownDifficulty() {
	rec := s.do(http.MethodPost, "/api/sessions", `{"difficulty":"brutal"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(rec))
}

func (s *ServerSuite) TestStartRejectsUnknownFields() {
	rec := s.do(http.MethodPost, "/api/sessions", `{"level":"easy"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("BAD_REQUEST", s.errorCode(rec))
}

func (s *ServerSuite) TestCurrentWithoutSession() {
	rec := s.do(http.MethodGet, "/api/sessions/current", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", s.errorCode(rec))
}

func (s *ServerSuite) TestUnknownSession() {
	rec := s.do(http.MethodPost, "/api/sessions/nope/hint", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestGuessRejectsNonLetters() {
	v := s.start()
	for _, body := range []string{`{"letter":"1"}`, `{"letter":"AB"}`, `{"letter":""}`, `{}`} {
		rec := s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/guess", body)
		s.Equal(http.StatusBadRequest, rec.Code, body)
		s.Equal("VALIDATION_ERROR", s.errorCode(rec), body)
	}
}

func (s *ServerSuite) TestPlayToWin() {
	v := s.start()
	session, err := s.server.GameService.Get(context.Background(), v.SessionID)
	s.Require().NoError(err)

	var out outcomeView
	for _, c := range v.CipherLetters {
		rec := s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/select", fmt.Sprintf(`{"letter":%q}`, c))
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		s.decode(rec, &out)
		s.Equal(c, out.Session.SelectedLetter)

		plain := string(session.Puzzle.ReverseMap[rune(c[0])])
		rec = s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/guess", fmt.Sprintf(`{"letter":%q}`, plain))
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		out = outcomeView{}
		s.decode(rec, &out)
		s.True(out.Correct)
	}

	s.True(out.Finished)
	s.True(out.Session.HasWon)
	s.Equal("Less is more.", out.Session.Plaintext)
	s.Equal("Less is more.", out.Session.Display)
	s.Positive(out.Score)
	s.Require().NotNil(out.Statistics)
	s.Equal(1, out.Statistics.GamesWon)
	s.Equal(float64(100), out.Statistics.WinRate)

	rec := s.do(http.MethodGet, "/api/stats", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var st statisticsView
	s.decode(rec, &st)
	s.Equal(1, st.GamesPlayed)
	s.Equal(out.Score, st.TotalScore)

	rec = s.do(http.MethodGet, "/api/history", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var history struct {
		Games []models.GameRecord `json:"games"`
	}
	s.decode(rec, &history)
	s.Require().Len(history.Games, 1)
	s.Equal(v.SessionID, history.Games[0].SessionID)

	rec = s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/complete", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestHintReveals() {
	v := s.start()
	rec := s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/hint", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var out outcomeView
	s.decode(rec, &out)
	s.Require().NotNil(out.Reveal)
	s.Equal(out.Reveal.Plain, out.Session.Revealed[out.Reveal.Cipher])
	s.Equal(1, out.Session.HintsUsed)
	s.Equal(1, out.Session.Mistakes)
}

func (s *ServerSuite) TestCompleteInProgress() {
	v := s.start()
	rec := s.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/complete", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestClearSession() {
	v := s.start()
	rec := s.do(http.MethodDelete, "/api/sessions/"+v.SessionID, "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/sessions/current", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestStatsBeforeAnyGame() {
	rec := s.do(http.MethodGet, "/api/stats", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestQuotes() {
	rec := s.do(http.MethodPost, "/api/quotes", `{"text":"Talk is cheap. Show me the code.","author":"Linus Torvalds","difficulty":"Hard"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var added models.Quote
	s.decode(rec, &added)
	s.Equal(models.DifficultyHard, added.Difficulty)

	rec = s.do(http.MethodPost, "/api/quotes", `{"text":"42","author":"Nobody"}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("INVALID_QUOTE", s.errorCode(rec))

	rec = s.do(http.MethodGet, "/api/quotes?difficulty=hard", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var list struct {
		Quotes []models.Quote `json:"quotes"`
		Total  int            `json:"total"`
	}
	s.decode(rec, &list)
	s.Equal(1, list.Total)
	s.Require().Len(list.Quotes, 1)
	s.Equal(added.ID, list.Quotes[0].ID)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/quotes/%d/retire", added.ID), "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/quotes", "")
	list.Quotes = nil
	s.decode(rec, &list)
	s.Equal(1, list.Total)

	rec = s.do(http.MethodGet, "/api/quotes?include_inactive=true", "")
	s.decode(rec, &list)
	s.Equal(2, list.Total)

	rec = s.do(http.MethodGet, "/api/quotes?limit=x", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestQuoteRoutesRejectBadIDs() {
	rec := s.do(http.MethodPost, "/api/quotes/abc/retire", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/quotes/999/retire", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestScheduleAndDaily() {
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/quotes/%d/schedule", s.quoteID), `{"date":"2024-03-02"}`)
	s.Require().Equal(http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/quotes/daily?date=2024-03-02", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var daily map[string]any
	s.decode(rec, &daily)
	s.EqualValues(s.quoteID, daily["id"])
	s.Equal("2024-03-02", daily["date"])
	s.NotContains(daily, "text")

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/quotes/%d/schedule", s.quoteID), `{"date":"March 2"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/sessions", `{"daily":true,"date":"2024-03-02"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var v sessionView
	s.decode(rec, &v)
	s.Equal(s.quoteID, v.QuoteID)
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return stderrors.New("gone") }

func TestReadyReportsUnavailableDatabase(t *testing.T) {
	srv := &Server{DB: downPinger{}}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fullQueue struct{}

func (fullQueue) QueueSize() int { return 4 }
func (fullQueue) Capacity() int  { return 4 }

func TestReadyReportsFullWriteQueue(t *testing.T) {
	srv := &Server{WriteQueue: fullQueue{}}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body readiness
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "write queue full", body.Reason)
	assert.Equal(t, 4, body.PendingWrites)
}

func TestRecoveryMiddlewareReturnsInternalError(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
