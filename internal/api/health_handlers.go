package api

import (
	"net/http"

	"github.com/vytor/quests/internal/logger"
)

// handleHealth is the liveness check. It always returns 200 OK.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady returns 200 when the document store answers a ping, 503 otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if s.Store != nil {
		if err := s.Store.Ping(r.Context()); err != nil {
			log.Warn("readiness check failed - document store: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Document store unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
