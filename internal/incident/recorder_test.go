package incident

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/edgeform/contact-gateway/internal/models"
	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPersistsAnonymizedIncident(t *testing.T) {
	store := storage.NewMemoryStore()
	r := NewRecorder(store, 16, time.Hour)
	defer r.Close()

	r.Record("203.0.113.9", "US", "curl/8.0", "honeypot_tripped")

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)

	keys := store.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "incident:"))
	assert.NotContains(t, keys[0], "203.0.113.9")

	raw, found, err := store.Get(context.Background(), keys[0])
	require.NoError(t, err)
	require.True(t, found)

	var event models.SecurityIncident
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.Equal(t, "honeypot_tripped", event.Reason)
	assert.Equal(t, "US", event.CountryCode)
	assert.Equal(t, "curl/8.0", event.UserAgent)
	assert.NotEqual(t, "203.0.113.9", event.ClientID)
	assert.Len(t, event.ClientID, 16)
}

func TestRecordNeverBlocksWhenBufferFull(t *testing.T) {
	store := storage.NewMemoryStore()
	r := NewRecorder(store, 1, time.Hour)
	defer r.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			r.Record("203.0.113.9", "US", "curl/8.0", "rate_limited:client_window_exhausted")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestAnonymizeClientIDIsStable(t *testing.T) {
	a := AnonymizeClientID("203.0.113.9")
	b := AnonymizeClientID("203.0.113.9")
	c := AnonymizeClientID("203.0.113.10")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
