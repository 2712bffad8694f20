package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/internal/observability"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeEngineError maps an engine error onto a status and a client-safe message.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dia.ErrRateLimited):
		if wait, ok := dia.RetryAfter(err); ok {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(math.Max(1, math.Ceil(wait.Seconds()))), 10))
		}
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, dia.ErrInvalidInput),
		errors.Is(err, dia.ErrOutOfRange),
		errors.Is(err, dia.ErrLifetimeExceeded):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dia.ErrMalformedAddress), errors.Is(err, dia.ErrClientAddressRequired):
		writeError(w, http.StatusBadRequest, "client address unavailable")
	case errors.Is(err, dia.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, dia.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, dia.ErrRefreshTokenNotFound):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	case dia.IsTokenError(err):
		writeError(w, http.StatusUnauthorized, "invalid token")
	default:
		s.logger.Error(r.Context(), "request_failed", "path", r.URL.Path, "err", err)
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
