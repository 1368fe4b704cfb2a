package httpapi

import (
	"net/http"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		if err := s.readiness(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "not_ready", "not_ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
