// internal/provider/gateway.go
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/permitwise/permitwise/internal/types"
	"go.uber.org/zap"
)

/*
 * Provider gateway with ordered fallback.
 *
 * The fallback chain is process-wide configuration resolved once at
 * startup: an explicitly constructed, immutable object, not ambient
 * mutable state. The chain is declared independently of which backends
 * are actually configured; absent members (missing credentials) are
 * skipped at call time.
 *
 * Call semantics:
 *   - No hint: start at the default backend, then walk the chain. Each
 *     member is tried at most once per logical call; no provider is ever
 *     revisited. Failure surfaces only when the chain is exhausted.
 *   - Explicit hint: that backend only, no fallback. The caller asked for
 *     a specific provider, so its failure is the answer.
 *   - Context cancellation aborts immediately without falling back; a
 *     cancelled turn must fail as cancelled, not mask itself behind a
 *     different provider's answer.
 *
 * Provider identity and raw provider errors are logged for operators but
 * never placed in user-facing responses.
 */

// ChainConfig declares the default backend and fallback order.
type ChainConfig struct {
	Default  string
	Fallback []string
}

// Completion is a gateway result: normalized text, the backend that
// produced it, and tokens consumed.
type Completion struct {
	Text       string
	Provider   string
	TokensUsed int
}

// Gateway routes completion requests across configured backends.
type Gateway struct {
	backends map[string]Backend
	cfg      ChainConfig
	log      *zap.Logger
}

// NewGateway creates a gateway over the given backends. The default
// backend must be configured; chain members may be absent.
func NewGateway(cfg ChainConfig, backends []Backend, log *zap.Logger) (*Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}
	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		if b == nil {
			continue
		}
		if _, dup := byName[b.Name()]; dup {
			return nil, fmt.Errorf("duplicate backend %q", b.Name())
		}
		byName[b.Name()] = b
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}
	if _, ok := byName[cfg.Default]; !ok {
		return nil, fmt.Errorf("default backend %q not configured", cfg.Default)
	}
	return &Gateway{backends: byName, cfg: cfg, log: log}, nil
}

// Complete runs one logical completion call. hint, when non-empty, pins
// the call to that backend with no fallback.
func (g *Gateway) Complete(ctx context.Context, req *Request, hint string) (*Completion, error) {
	if hint != "" {
		backend, ok := g.backends[hint]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrProviderNotConfigured, hint)
		}
		return g.attempt(ctx, backend, req)
	}

	tried := make(map[string]bool)
	var errs []error

	for _, name := range g.order() {
		if tried[name] {
			continue
		}
		backend, ok := g.backends[name]
		if !ok {
			// Chain member without credentials; skip.
			continue
		}
		tried[name] = true

		completion, err := g.attempt(ctx, backend, req)
		if err == nil {
			return completion, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		g.log.Warn("provider failed, trying next in chain",
			zap.String("provider", name),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	return nil, fmt.Errorf("%w: %w", types.ErrProvidersExhausted, errors.Join(errs...))
}

// attempt runs a single backend call and normalizes the result.
func (g *Gateway) attempt(ctx context.Context, backend Backend, req *Request) (*Completion, error) {
	resp, err := backend.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Text == "" {
		return nil, fmt.Errorf("%s returned empty completion", backend.Name())
	}
	return &Completion{
		Text:       resp.Text,
		Provider:   backend.Name(),
		TokensUsed: resp.TokensUsed,
	}, nil
}

// order yields the default backend followed by the fallback chain.
func (g *Gateway) order() []string {
	order := make([]string, 0, len(g.cfg.Fallback)+1)
	order = append(order, g.cfg.Default)
	order = append(order, g.cfg.Fallback...)
	return order
}

// Configured reports whether a backend name is usable.
func (g *Gateway) Configured(name string) bool {
	_, ok := g.backends[name]
	return ok
}
