package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/edgeform/contact-gateway/internal/broker"
	"github.com/edgeform/contact-gateway/internal/circuitbreaker"
	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/edgeform/contact-gateway/internal/models"
)

// ProviderError carries the downstream status and body for diagnostic
// logging. It is never echoed to the end user.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

// Dispatcher builds the provider message envelope and sends it with a
// brokered bearer token. Calls run under a circuit breaker so a dead
// provider sheds load fast instead of eating a timeout per request.
type Dispatcher struct {
	broker    *broker.Broker
	sendURL   string
	sender    string
	recipient string
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
}

func New(b *broker.Broker, cfg config.DispatchConfig) *Dispatcher {
	return &Dispatcher{
		broker:    b,
		sendURL:   cfg.SendURL,
		sender:    cfg.Sender,
		recipient: cfg.Recipient,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   circuitbreaker.New(circuitbreaker.Config{}),
	}
}

type emailAddress struct {
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type message struct {
	Subject      string      `json:"subject"`
	Body         messageBody `json:"body"`
	From         *recipient  `json:"from,omitempty"`
	ToRecipients []recipient `json:"toRecipients"`
	ReplyTo      []recipient `json:"replyTo,omitempty"`
}

type envelope struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

// Send delivers the submission through the downstream provider. Any
// non-success provider status is a hard failure.
func (d *Dispatcher) Send(ctx context.Context, sub *models.ContactSubmission) error {
	return d.breaker.Call(func() error {
		return d.send(ctx, sub)
	})
}

func (d *Dispatcher) send(ctx context.Context, sub *models.ContactSubmission) error {
	token, err := d.broker.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire dispatch token: %w", err)
	}

	payload, err := json.Marshal(d.buildEnvelope(sub))
	if err != nil {
		return fmt.Errorf("failed to encode message envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

func (d *Dispatcher) buildEnvelope(sub *models.ContactSubmission) envelope {
	content := fmt.Sprintf("Name: %s\nEmail: %s\n", sub.Name, sub.Email)
	if sub.Company != "" {
		content += fmt.Sprintf("Company: %s\n", sub.Company)
	}
	content += "\n" + sub.Message + "\n"

	return envelope{
		Message: message{
			Subject: fmt.Sprintf("Contact form: %s", sub.Subject),
			Body: messageBody{
				ContentType: "Text",
				Content:     content,
			},
			From: &recipient{EmailAddress: emailAddress{Address: d.sender}},
			ToRecipients: []recipient{
				{EmailAddress: emailAddress{Address: d.recipient}},
			},
			ReplyTo: []recipient{
				{EmailAddress: emailAddress{Address: sub.Email}},
			},
		},
		SaveToSentItems: true,
	}
}
