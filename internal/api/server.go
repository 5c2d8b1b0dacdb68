package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// QueueStats reports the backlog of the statistics write queue.
type QueueStats interface {
	QueueSize() int
	Capacity() int
}

// Server is the JSON adapter over the game services. It holds no game
// rules of its own.
type Server struct {
	GameService  services.GameService
	QuoteService services.QuoteService
	StatsService services.StatsService
	DB           Pinger
	WriteQueue   QueueStats
	UserID       string
	Now          func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.NewBadRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(key, "must be a non-negative integer")
	}
	return n, nil
}

// queryDate parses a YYYY-MM-DD parameter, defaulting to today (UTC).
func (s *Server) queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return s.now().UTC(), nil
	}
	return parseDate(key, raw)
}

func parseDate(field, raw string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "must be YYYY-MM-DD")
	}
	return day, nil
}
