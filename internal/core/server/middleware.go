// internal/core/server/middleware.go
package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/core/auth"
)

// authenticate resolves the caller for a request. With no authenticator
// configured every request runs as the anonymous caller; with one, a
// missing key still falls back to anonymous while a present-but-bad key is
// rejected. Revoked keys get 403 (the key existed), everything else 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := auth.AnonymousCaller

		if s.auth != nil {
			if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
				resolved, err := s.auth.Authenticate(r.Context(), apiKey)
				if err != nil {
					s.writeAuthError(w, err)
					return
				}
				callerID = resolved
			}
		}

		next.ServeHTTP(w, r.WithContext(auth.WithCallerID(r.Context(), callerID)))
	})
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrKeyRevoked):
		writeError(w, http.StatusForbidden, "API key has been revoked")
	case strings.Contains(err.Error(), "database error"):
		s.log.Error("authentication unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "something went wrong, please try again")
	default:
		writeError(w, http.StatusUnauthorized, "invalid API key")
	}
}
