// internal/core/server/turns.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/core/auth"
	"github.com/permitwise/permitwise/internal/types"
)

type turnRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleTurn advances one conversation by one message.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req turnRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	callerID := auth.CallerIDFromContext(ctx)

	if err := s.limiter.Allow(ctx, callerID); err != nil {
		if errors.Is(err, types.ErrQuotaExceeded) {
			writeError(w, http.StatusTooManyRequests, "daily limit reached, try again tomorrow")
			return
		}
		s.log.Error("quota check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "something went wrong, please try again")
		return
	}

	resp, err := s.orchestrator.Turn(ctx, types.ConversationID(req.ConversationID), callerID, req.Message)
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to write turn response", zap.Error(err))
	}
}

// writeTurnError maps orchestrator errors onto HTTP statuses. Validation
// errors are safe to report verbatim; rule configuration errors get their
// own opaque message (the operator detail is already logged where the rule
// was evaluated); everything else collapses to a generic retry message so
// internals (including which provider failed) never leak.
func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message must not be empty")
	case errors.Is(err, types.ErrMessageTooLarge):
		writeError(w, http.StatusBadRequest, "message is too long")
	case errors.Is(err, types.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, types.ErrConversationCompleted):
		writeError(w, http.StatusConflict, "conversation is already completed, start a new one")
	case errors.Is(err, types.ErrUnknownOperator),
		errors.Is(err, types.ErrInvalidCondition),
		errors.Is(err, types.ErrInvalidOutcome):
		s.log.Error("rule configuration error", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "rules are unavailable for this jurisdiction and category, please try again later")
	default:
		s.log.Error("turn failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "something went wrong, please try again")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
