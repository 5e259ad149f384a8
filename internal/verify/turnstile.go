package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/sirupsen/logrus"
)

// Checker validates a client-supplied proof-of-humanity token against
// the Turnstile siteverify endpoint.
//
// The checker fails open: a missing secret disables the stage, and a
// degraded verification provider must not block legitimate senders.
// See DESIGN.md for why this stays fail-open.
type Checker struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewChecker(cfg config.TurnstileConfig) *Checker {
	return &Checker{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a secret is configured for this deployment.
func (c *Checker) Enabled() bool {
	return c.secret != ""
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns the provider's verdict for the token. Verification
// passes when the stage is disabled, no token was supplied, or the
// provider cannot be reached or understood.
func (c *Checker) Verify(ctx context.Context, token, remoteIP string) bool {
	if !c.Enabled() || token == "" {
		return true
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	form.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return true
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("turnstile verification unreachable, failing open")
		return true
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logrus.WithError(err).Warn("turnstile verification unparseable, failing open")
		return true
	}

	if !result.Success {
		logrus.WithField("error_codes", result.ErrorCodes).Info("turnstile verification rejected token")
	}

	return result.Success
}
