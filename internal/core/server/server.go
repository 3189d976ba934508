// Package server exposes the conversation pipeline over HTTP.
//
// Surface: POST /v1/turns advances a conversation by one user message,
// GET /healthz reports liveness. Authentication and quota wrap the turn
// endpoint; error responses are deliberately generic so provider identity
// and internal failure detail never reach callers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/conversation"
	"github.com/permitwise/permitwise/internal/core/auth"
	"github.com/permitwise/permitwise/internal/core/config"
	"github.com/permitwise/permitwise/internal/quota"
)

// maxBodyBytes caps a turn request body. Larger than the message limit to
// leave room for JSON framing, small enough to bound parsing work.
const maxBodyBytes = 16 * 1024

// Server wraps the HTTP components of the PermitWise API.
type Server struct {
	cfg          *config.Config
	orchestrator *conversation.Orchestrator
	limiter      quota.Limiter
	auth         *auth.Authenticator // nil disables authentication
	log          *zap.Logger
	mux          *http.ServeMux
}

// New assembles the server. A nil authenticator runs every request as the
// anonymous caller; a nil limiter disables quota.
func New(cfg *config.Config, o *conversation.Orchestrator, limiter quota.Limiter, authenticator *auth.Authenticator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if limiter == nil {
		limiter = quota.Unlimited{}
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: o,
		limiter:      limiter,
		auth:         authenticator,
		log:          log,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/v1/turns", s.authenticate(http.HandlerFunc(s.handleTurn)))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.RequestTimeout,
		WriteTimeout:      s.cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
