package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/cryptogram/internal/cipher"
	apperrors "github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/services"
)

type startRequest struct {
	Difficulty string `json:"difficulty"`
	Daily      bool   `json:"daily"`
	Date       string `json:"date"`
}

type letterRequest struct {
	Letter string `json:"letter"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var (
		session *models.GameSession
		err     error
	)
	if req.Daily {
		day := s.now().UTC()
		if req.Date != "" {
			if day, err = parseDate("date", req.Date); err != nil {
				handleError(w, r, err)
				return
			}
		}
		log.Debug("starting daily session for %s", services.DateKey(day))
		session, err = s.GameService.StartDaily(ctx, day)
	} else {
		var difficulty models.Difficulty
		if req.Difficulty != "" {
			d, ok := models.ParseDifficulty(req.Difficulty)
			if !ok {
				handleError(w, r, apperrors.NewValidationError("difficulty", "must be easy, medium or hard"))
				return
			}
			difficulty = d
		}
		session, err = s.GameService.Start(ctx, difficulty)
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newSessionView(*session))
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.GameService.Current(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(*session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.GameService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(*session))
}

// readLetter decodes {"letter": "x"} and requires a single ASCII letter.
func readLetter(w http.ResponseWriter, r *http.Request) (rune, error) {
	var req letterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return 0, err
	}
	rs := []rune(req.Letter)
	if len(rs) != 1 || !cipher.IsLetter(rs[0]) {
		return 0, apperrors.NewValidationError("letter", "must be a single letter A-Z")
	}
	return cipher.Upper(rs[0]), nil
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	letter, err := readLetter(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out, err := s.GameService.Select(r.Context(), chi.URLParam(r, "id"), letter)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	letter, err := readLetter(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out, err := s.GameService.Guess(r.Context(), chi.URLParam(r, "id"), letter)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	out, err := s.GameService.Hint(r.Context(), chi.URLParam(r, "id"))
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	out, err := s.GameService.Complete(r.Context(), chi.URLParam(r, "id"))
	s.writeOutcome(w, r, out, err)
}

// writeOutcome reports err when set. The move itself may still have been
// saved; a later GET shows the stored snapshot.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out *services.Outcome, err error) {
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newOutcomeView(out))
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.GameService.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		handleError(w, r, err)
		return
	}
	records, err := s.GameService.History(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if records == nil {
		records = []models.GameRecord{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"games": records})
}
