package ratelimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edgeform/contact-gateway/internal/storage"
)

// BackoffState is the per-client attempt record persisted in the
// shared store. There is no explicit expiry field: a record older than
// the reset threshold is treated as if the counter were zero.
type BackoffState struct {
	Attempts    int   `json:"attempts"`
	LastAttempt int64 `json:"last_attempt"` // unix seconds
}

// Backoff imposes an escalating mandatory wait on repeat callers. It
// runs before the window-based limiter so a persistent single client
// is throttled even while staying under the raw per-window count.
type Backoff struct {
	store      storage.Store
	table      []time.Duration
	resetAfter time.Duration

	now func() time.Time
}

func NewBackoff(store storage.Store, table []time.Duration, resetAfter time.Duration) *Backoff {
	return &Backoff{
		store:      store,
		table:      table,
		resetAfter: resetAfter,
		now:        time.Now,
	}
}

const backoffKeyPrefix = "backoff:"

// RequiredDelay computes the outstanding wait for a client as a pure
// function of the clock and the stored state, so the implicit reset
// stays independently testable. A state older than resetAfter counts
// as zero attempts.
func RequiredDelay(now time.Time, state BackoffState, table []time.Duration, resetAfter time.Duration) time.Duration {
	if state.Attempts == 0 || len(table) == 0 {
		return 0
	}

	last := time.Unix(state.LastAttempt, 0)
	elapsed := now.Sub(last)
	if elapsed > resetAfter {
		return 0
	}

	idx := state.Attempts
	if idx > len(table)-1 {
		idx = len(table) - 1
	}

	if delay := table[idx]; elapsed < delay {
		return delay - elapsed
	}
	return 0
}

// Check returns the remaining wait for the client. A positive result
// means the request must be rejected and the attempt counter is left
// unchanged. A zero result records the attempt and lets the request
// proceed to the window limiter.
func (b *Backoff) Check(ctx context.Context, clientID string) (time.Duration, error) {
	key := backoffKeyPrefix + clientID
	now := b.now()

	var state BackoffState
	raw, found, err := b.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if found {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			// Unreadable state is discarded rather than trusted.
			state = BackoffState{}
		}
	}

	if wait := RequiredDelay(now, state, b.table, b.resetAfter); wait > 0 {
		return wait, nil
	}

	// Stale counters restart from zero before the increment.
	if state.Attempts > 0 && now.Sub(time.Unix(state.LastAttempt, 0)) > b.resetAfter {
		state.Attempts = 0
	}

	state.Attempts++
	state.LastAttempt = now.Unix()

	data, err := json.Marshal(state)
	if err != nil {
		return 0, err
	}

	if err := b.store.SetWithTTL(ctx, key, string(data), b.resetAfter); err != nil {
		return 0, err
	}

	return 0, nil
}
