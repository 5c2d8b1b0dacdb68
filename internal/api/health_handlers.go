package api

import (
	"net/http"

	"github.com/vytor/cryptogram/internal/logger"
)

type readiness struct {
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	PendingWrites int    `json:"pending_writes"`
}

// handleHealth is the liveness probe; it always returns 200 OK.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady returns 200 when the database answers a ping and the write
// queue has room, 503 otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var body readiness
	if s.WriteQueue != nil {
		body.PendingWrites = s.WriteQueue.QueueSize()
	}

	if s.DB != nil {
		if err := s.DB.PingContext(ctx); err != nil {
			log.Warn("readiness check failed - database: %v", err)
			body.Status, body.Reason = "unavailable", "database unavailable"
			writeJSON(w, r, http.StatusServiceUnavailable, body)
			return
		}
	}
	if s.WriteQueue != nil && body.PendingWrites >= s.WriteQueue.Capacity() {
		log.Warn("readiness check failed - write queue full: %d pending", body.PendingWrites)
		body.Status, body.Reason = "unavailable", "write queue full"
		writeJSON(w, r, http.StatusServiceUnavailable, body)
		return
	}

	body.Status = "ready"
	writeJSON(w, r, http.StatusOK, body)
}
