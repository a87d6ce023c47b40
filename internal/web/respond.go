package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id"`
}

// requestID returns the id assigned by middleware.RequestID, or a fresh
// uuid when the request did not pass through it.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// httpStatusForError maps err to a response status. An expired deadline is a
// 504 whichever category wraps it, matching middleware.Timeout.
func httpStatusForError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatVaultAccess:
		if domErr.Code == core.CodeSecretNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case core.ErrCatAuth, core.ErrCatResolution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Pragma", "no-cache")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// fail logs err once and writes the generic error response. API routes get
// JSON, pages get the error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, api bool) {
	id := requestID(r)
	status := httpStatusForError(err)

	s.logger.WithRequest(id).Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("category", string(core.GetCategory(err))),
		slog.Any("error", err),
	)

	noStore(w)
	if api {
		s.respondJSON(w, status, errorResponse{
			Error:     http.StatusText(status),
			Code:      core.GetCode(err),
			RequestID: id,
		})
		return
	}
	s.render(w, r, status, pageError, errorPage{RequestID: id})
}
