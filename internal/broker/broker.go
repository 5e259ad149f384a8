package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/edgeform/contact-gateway/internal/storage"
)

// expiryMargin is subtracted from the token lifetime so a token close
// to expiry is never handed to a dispatch call that might outlive it.
const expiryMargin = 60 * time.Second

const tokenKey = "oauth:access_token"

// cachedToken is the stored shape of a brokered token.
type cachedToken struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// Broker exchanges the service's client credentials for short-lived
// bearer tokens and caches them in the shared store. A cached token is
// never returned past its expiry minus the safety margin.
type Broker struct {
	store        storage.Store
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client

	now func() time.Time
}

func New(store storage.Store, cfg config.OAuthConfig) *Broker {
	return &Broker{
		store:        store,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		client:       &http.Client{Timeout: cfg.Timeout},
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken returns a valid bearer token, reusing the cached one
// when it has lifetime left and performing the client-credentials
// exchange otherwise.
func (b *Broker) AccessToken(ctx context.Context) (string, error) {
	if token, ok := b.cached(ctx); ok {
		return token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", b.clientID)
	form.Set("client_secret", b.clientSecret)
	form.Set("scope", b.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	b.cache(ctx, token)

	return token.AccessToken, nil
}

func (b *Broker) cached(ctx context.Context) (string, bool) {
	raw, found, err := b.store.Get(ctx, tokenKey)
	if err != nil || !found {
		return "", false
	}

	var token cachedToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return "", false
	}

	if b.now().Add(expiryMargin).After(time.Unix(token.ExpiresAt, 0)) {
		return "", false
	}

	return token.Value, true
}

// cache is best-effort: a store failure just means the next invocation
// pays for another exchange.
func (b *Broker) cache(ctx context.Context, token tokenResponse) {
	ttl := time.Duration(token.ExpiresIn)*time.Second - expiryMargin
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(cachedToken{
		Value:     token.AccessToken,
		ExpiresAt: b.now().Unix() + token.ExpiresIn,
	})
	if err != nil {
		return
	}

	b.store.SetWithTTL(ctx, tokenKey, string(data), ttl)
}
