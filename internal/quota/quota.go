// Package quota enforces per-caller daily turn limits.
//
// A "turn" for quota purposes is any accepted user message; quota is charged
// before provider calls happen so an exhausted caller costs nothing
// downstream. Counters are day-scoped in UTC and reset implicitly at
// midnight by keying on the date.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/permitwise/permitwise/internal/types"
)

// Limiter answers whether a caller may spend one more turn, charging the
// turn in the same call.
type Limiter interface {
	// Allow consumes one turn for the caller. Returns
	// types.ErrQuotaExceeded once the daily limit is spent.
	Allow(ctx context.Context, callerID string) error
}

// dayKey scopes a counter to caller and UTC date.
func dayKey(callerID string, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s", callerID, now.UTC().Format("2006-01-02"))
}

// Unlimited is a Limiter that never refuses. Used when quota enforcement
// is disabled in configuration.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(ctx context.Context, callerID string) error { return nil }

// MemLimiter is an in-process Limiter for single-instance deployments and
// tests. Counters for past days are pruned lazily on rollover.
type MemLimiter struct {
	limit int

	mu     sync.Mutex
	day    string
	counts map[string]int
}

// NewMemLimiter creates an in-memory limiter with the given daily limit.
func NewMemLimiter(limit int) *MemLimiter {
	return &MemLimiter{limit: limit, counts: make(map[string]int)}
}

// Allow implements Limiter.
func (l *MemLimiter) Allow(ctx context.Context, callerID string) error {
	today := time.Now().UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.day != today {
		l.day = today
		l.counts = make(map[string]int)
	}
	if l.counts[callerID] >= l.limit {
		return types.ErrQuotaExceeded
	}
	l.counts[callerID]++
	return nil
}
