package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/edgeform/contact-gateway/internal/storage"
)

type Tier string

const (
	TierStandard Tier = "standard"
	TierElevated Tier = "elevated"
)

type RejectReason string

const (
	RejectClient RejectReason = "client_window_exhausted"
	RejectGlobal RejectReason = "global_window_exhausted"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Reason     RejectReason
	Tier       Tier
	RetryAfter time.Duration
}

// Limiter enforces a per-client ceiling, lowered for elevated-risk
// countries, and a global ceiling protecting the downstream mail
// quota. Both counters are sliding windows in the shared store.
//
// The count-then-record sequence is not atomic across concurrent
// requests for the same key; the limiter accepts a bounded overshoot
// rather than paying for distributed locking. See DESIGN.md.
type Limiter struct {
	window        *SlidingWindow
	clientLimit   int
	elevatedLimit int
	globalLimit   int
	elevated      map[string]struct{}
}

func NewLimiter(redis *storage.RedisClient, cfg config.RateLimitConfig) *Limiter {
	elevated := make(map[string]struct{}, len(cfg.ElevatedCountries))
	for _, cc := range cfg.ElevatedCountries {
		elevated[strings.ToUpper(cc)] = struct{}{}
	}

	return &Limiter{
		window:        NewSlidingWindow(redis, cfg.Window),
		clientLimit:   cfg.ClientLimit,
		elevatedLimit: cfg.ElevatedLimit,
		globalLimit:   cfg.GlobalLimit,
		elevated:      elevated,
	}
}

const (
	clientKeyPrefix = "ratelimit:client:"
	globalKey       = "ratelimit:global"
)

// TierFor classifies a country code; unknown codes are standard tier.
func (l *Limiter) TierFor(countryCode string) Tier {
	if _, ok := l.elevated[strings.ToUpper(countryCode)]; ok {
		return TierElevated
	}
	return TierStandard
}

// Admit checks both windows and, only when the request is allowed,
// records one timestamp in each. A rejection leaves both counters
// untouched.
func (l *Limiter) Admit(ctx context.Context, clientID, countryCode string) (Decision, error) {
	tier := l.TierFor(countryCode)
	limit := l.clientLimit
	if tier == TierElevated {
		limit = l.elevatedLimit
	}

	clientKey := clientKeyPrefix + clientID

	clientCount, err := l.window.Count(ctx, clientKey)
	if err != nil {
		return Decision{}, err
	}

	if clientCount >= int64(limit) {
		retryAfter, _ := l.retryAfter(ctx, clientKey)
		return Decision{Reason: RejectClient, Tier: tier, RetryAfter: retryAfter}, nil
	}

	globalCount, err := l.window.Count(ctx, globalKey)
	if err != nil {
		return Decision{}, err
	}

	if globalCount >= int64(l.globalLimit) {
		retryAfter, _ := l.retryAfter(ctx, globalKey)
		return Decision{Reason: RejectGlobal, Tier: tier, RetryAfter: retryAfter}, nil
	}

	now := time.Now()
	if err := l.window.Record(ctx, clientKey, now); err != nil {
		return Decision{}, err
	}
	if err := l.window.Record(ctx, globalKey, now); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Tier: tier}, nil
}

// ClientCount reports the live entries in one client's window.
func (l *Limiter) ClientCount(ctx context.Context, clientID string) (int64, error) {
	return l.window.Count(ctx, clientKeyPrefix+clientID)
}

func (l *Limiter) retryAfter(ctx context.Context, key string) (time.Duration, error) {
	resetTime, err := l.window.ResetTime(ctx, key)
	if err != nil {
		return time.Second, err
	}

	wait := time.Until(resetTime)
	if wait < time.Second {
		wait = time.Second
	}
	return wait, nil
}
