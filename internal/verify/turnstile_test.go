package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/stretchr/testify/assert"
)

func newChecker(secret, verifyURL string) *Checker {
	return NewChecker(config.TurnstileConfig{
		Secret:    secret,
		VerifyURL: verifyURL,
		Timeout:   2 * time.Second,
	})
}

func TestVerifyDisabledWithoutSecret(t *testing.T) {
	c := newChecker("", "http://unreachable.invalid")
	assert.False(t, c.Enabled())

	// No secret configured: verification never blocks.
	assert.True(t, c.Verify(context.Background(), "any-token", "1.2.3.4"))
	assert.True(t, c.Verify(context.Background(), "", "1.2.3.4"))
}

func TestVerifyPassesWithoutToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := newChecker("secret", srv.URL)
	assert.True(t, c.Verify(context.Background(), "", "1.2.3.4"))
	assert.False(t, called)
}

func TestVerifyForwardsTokenAndIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.Form.Get("secret"))
		assert.Equal(t, "tok-123", r.Form.Get("response"))
		assert.Equal(t, "1.2.3.4", r.Form.Get("remoteip"))

		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := newChecker("secret", srv.URL)
	assert.True(t, c.Verify(context.Background(), "tok-123", "1.2.3.4"))
}

func TestVerifyRejectsFailedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer srv.Close()

	c := newChecker("secret", srv.URL)
	assert.False(t, c.Verify(context.Background(), "bad-token", "1.2.3.4"))
}

func TestVerifyFailsOpenOnProviderOutage(t *testing.T) {
	// Unreachable endpoint: verification must not block the sender.
	c := newChecker("secret", "http://127.0.0.1:1/siteverify")
	assert.True(t, c.Verify(context.Background(), "tok-123", "1.2.3.4"))
}

func TestVerifyFailsOpenOnGarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newChecker("secret", srv.URL)
	assert.True(t, c.Verify(context.Background(), "tok-123", "1.2.3.4"))
}
