package web

import (
	"net/http"
	"time"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
)

type indexPage struct {
	Snapshot *diagnostics.Snapshot
}

type errorPage struct {
	RequestID string
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.builder.Build(r.Context())
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	s.render(w, r, http.StatusOK, pageIndex, indexPage{Snapshot: snap})
}

// handleSecret renders the index page with the configured secret merged in.
func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	snap, err := s.fetcher.Fetch(r.Context(), *s.secrets.Load())
	if err != nil {
		s.fail(w, r, err, false)
		return
	}
	noStore(w)
	s.render(w, r, http.StatusOK, pageIndex, indexPage{Snapshot: snap})
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pagePrivacy, nil)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	s.render(w, r, http.StatusOK, pageError, errorPage{RequestID: requestID(r)})
}

// handleAPIRoot returns API information.
func (s *Server) handleAPIRoot(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"version": "v1", "name": "hostdiag-api"})
}

func (s *Server) handleAPISnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.builder.Build(r.Context())
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAPISecret(w http.ResponseWriter, r *http.Request) {
	snap, err := s.fetcher.Fetch(r.Context(), *s.secrets.Load())
	if err != nil {
		s.fail(w, r, err, true)
		return
	}
	noStore(w)
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAPISystem(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.metrics.Collect())
}
