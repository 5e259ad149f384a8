package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = []time.Duration{
	0,
	5 * time.Second,
	15 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

const testResetAfter = time.Hour

func TestRequiredDelayFreshClient(t *testing.T) {
	now := time.Now()

	wait := RequiredDelay(now, BackoffState{}, testTable, testResetAfter)
	assert.Equal(t, time.Duration(0), wait)
}

func TestRequiredDelayEscalates(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	state := BackoffState{LastAttempt: now.Unix()}

	// The required delay must be non-decreasing as attempts grow.
	var prev time.Duration
	for attempts := 1; attempts < 10; attempts++ {
		state.Attempts = attempts
		wait := RequiredDelay(now, state, testTable, testResetAfter)
		assert.GreaterOrEqual(t, wait, prev, "attempts=%d", attempts)
		prev = wait
	}

	// Beyond the table the delay is clamped to the last entry.
	state.Attempts = 100
	assert.Equal(t, 15*time.Minute, RequiredDelay(now, state, testTable, testResetAfter))
}

func TestRequiredDelayElapsedTimeCounts(t *testing.T) {
	last := time.Unix(1_700_000_000, 0)
	state := BackoffState{Attempts: 2, LastAttempt: last.Unix()}

	// 15s required, 10s elapsed: 5s remain.
	assert.Equal(t, 5*time.Second, RequiredDelay(last.Add(10*time.Second), state, testTable, testResetAfter))

	// Fully elapsed: no wait.
	assert.Equal(t, time.Duration(0), RequiredDelay(last.Add(15*time.Second), state, testTable, testResetAfter))
}

func TestRequiredDelayImplicitReset(t *testing.T) {
	last := time.Unix(1_700_000_000, 0)
	state := BackoffState{Attempts: 5, LastAttempt: last.Unix()}

	// Just inside the reset threshold the count still binds.
	assert.Greater(t, RequiredDelay(last.Add(30*time.Minute), state, testTable, testResetAfter), time.Duration(0))

	// Past the threshold the stored count is stale and ignored.
	assert.Equal(t, time.Duration(0), RequiredDelay(last.Add(testResetAfter+time.Second), state, testTable, testResetAfter))
}

func TestBackoffCheckRecordsAttempts(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewBackoff(store, testTable, testResetAfter)

	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }

	ctx := context.Background()

	// First request passes and records attempt one.
	wait, err := b.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), wait)

	// An immediate retry owes the table's second delay.
	wait, err = b.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, wait)

	// The rejected retry must not have advanced the counter: after the
	// delay elapses the next attempt owes table[2], not table[3].
	now = now.Add(5 * time.Second)
	wait, err = b.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), wait)

	wait, err = b.Check(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, wait)
}

func TestBackoffResetAfterQuietPeriod(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewBackoff(store, testTable, testResetAfter)

	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }
	store.Now = func() time.Time { return now }

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.Check(ctx, "5.6.7.8")
		require.NoError(t, err)
		now = now.Add(20 * time.Minute)
	}

	// After a full quiet hour the sequence restarts at the first delay.
	now = now.Add(testResetAfter + time.Minute)
	wait, err := b.Check(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), wait)

	wait, err = b.Check(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, wait)
}

func TestBackoffClientsAreIndependent(t *testing.T) {
	store := storage.NewMemoryStore()
	b := NewBackoff(store, testTable, testResetAfter)

	ctx := context.Background()

	_, err := b.Check(ctx, "1.1.1.1")
	require.NoError(t, err)

	wait, err := b.Check(ctx, "2.2.2.2")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), wait)
}
