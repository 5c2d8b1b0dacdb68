package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/models"
)

type scheduleRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.QuoteFilter{
		Author:          q.Get("author"),
		IncludeInactive: q.Get("include_inactive") == "true",
	}
	if raw := q.Get("difficulty"); raw != "" {
		d, ok := models.ParseDifficulty(raw)
		if !ok {
			handleError(w, r, apperrors.NewValidationError("difficulty", "must be easy, medium or hard"))
			return
		}
		filter.Difficulty = d
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 50); err != nil {
		handleError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		handleError(w, r, err)
		return
	}

	quotes, total, err := s.QuoteService.ListQuotes(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"quotes": quotes, "total": total})
}

func (s *Server) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	var req models.NewQuote
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Difficulty != "" {
		d, ok := models.ParseDifficulty(string(req.Difficulty))
		if !ok {
			handleError(w, r, apperrors.NewValidationError("difficulty", "must be easy, medium or hard"))
			return
		}
		req.Difficulty = d
	}
	q, err := s.QuoteService.AddQuote(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, q)
}

func (s *Server) handleDailyQuote(w http.ResponseWriter, r *http.Request) {
	day, err := s.queryDate(r, "date")
	if err != nil {
		handleError(w, r, err)
		return
	}
	q, err := s.QuoteService.DailyQuote(r.Context(), day)
	if err != nil {
		handleError(w, r, err)
		return
	}
	// Only the metadata: the text is the day's puzzle.
	writeJSON(w, r, http.StatusOK, map[string]any{
		"id":         q.ID,
		"author":     q.Author,
		"difficulty": q.Difficulty,
		"date":       day.Format("2006-01-02"),
	})
}

func quoteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError("invalid quote id")
	}
	return id, nil
}

func (s *Server) handleRetireQuote(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.QuoteService.RetireQuote(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScheduleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.QuoteService.ScheduleDaily(r.Context(), id, day); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
