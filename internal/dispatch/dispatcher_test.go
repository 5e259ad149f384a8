package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgeform/contact-gateway/internal/broker"
	"github.com/edgeform/contact-gateway/internal/circuitbreaker"
	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/edgeform/contact-gateway/internal/models"
	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() *models.ContactSubmission {
	return &models.ContactSubmission{
		Name:    "Jordan Smith",
		Email:   "jordan@example.com",
		Subject: "Partnership",
		Message: "Let's talk about your product.",
		Company: "Acme",
	}
}

func newTestDispatcher(t *testing.T, sendURL string) *Dispatcher {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "test-token", "expires_in": 3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	b := broker.New(storage.NewMemoryStore(), config.OAuthConfig{
		TokenURL:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		Scope:        "scope",
		Timeout:      2 * time.Second,
	})

	return New(b, config.DispatchConfig{
		SendURL:   sendURL,
		Sender:    "noreply@example.com",
		Recipient: "hello@example.com",
		Timeout:   2 * time.Second,
	})
}

func TestSendBuildsEnvelope(t *testing.T) {
	var got envelope
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)
	require.NoError(t, d.Send(context.Background(), testSubmission()))

	assert.Equal(t, "Bearer test-token", auth)
	assert.Equal(t, "Contact form: Partnership", got.Message.Subject)
	assert.Equal(t, "Text", got.Message.Body.ContentType)
	assert.Contains(t, got.Message.Body.Content, "Name: Jordan Smith")
	assert.Contains(t, got.Message.Body.Content, "Company: Acme")
	assert.Contains(t, got.Message.Body.Content, "Let's talk about your product.")
	require.Len(t, got.Message.ToRecipients, 1)
	assert.Equal(t, "hello@example.com", got.Message.ToRecipients[0].EmailAddress.Address)
	require.NotNil(t, got.Message.From)
	assert.Equal(t, "noreply@example.com", got.Message.From.EmailAddress.Address)
	require.Len(t, got.Message.ReplyTo, 1)
	assert.Equal(t, "jordan@example.com", got.Message.ReplyTo[0].EmailAddress.Address)
}

func TestSendProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "mailbox unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	err := d.Send(context.Background(), testSubmission())
	require.Error(t, err)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "mailbox unavailable")
}

func TestSendBreakerOpensOnRepeatedFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	for i := 0; i < 5; i++ {
		require.Error(t, d.Send(context.Background(), testSubmission()))
	}
	assert.Equal(t, int64(5), calls.Load())
	assert.Equal(t, circuitbreaker.StateOpen, d.breaker.State())

	// The open breaker sheds the next call without touching the wire.
	err := d.Send(context.Background(), testSubmission())
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int64(5), calls.Load())
}
