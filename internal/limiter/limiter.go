// Package limiter defines interfaces and implementations for request rate limiting.
package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Limiter counts hits per key within a window.
type Limiter interface {
	// Allow records a hit for key and reports whether it fits in the current window,
	// plus how long until the window resets when it does not.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// HashKey returns a stable hex digest so raw client addresses are never stored.
func HashKey(s string) string {
	h := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(h[:16])
}

// Guard applies the fail-open policy on top of a Limiter: a backend error lets the request through.
type Guard struct {
	l   Limiter
	log *zap.Logger
}

// NewGuard wraps l. A nil l allows everything.
func NewGuard(l Limiter, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{l: l, log: log}
}

// Allow reports whether action by subject may proceed.
func (g *Guard) Allow(ctx context.Context, action, subject string) (bool, time.Duration) {
	if g == nil || g.l == nil {
		return true, 0
	}
	ok, retry, err := g.l.Allow(ctx, action+":"+subject)
	if err != nil {
		g.log.Warn("rate limiter unavailable, allowing", zap.String("action", action), zap.Error(err))
		return true, 0
	}
	return ok, retry
}
