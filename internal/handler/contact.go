package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edgeform/contact-gateway/internal/classifier"
	"github.com/edgeform/contact-gateway/internal/dispatch"
	"github.com/edgeform/contact-gateway/internal/incident"
	"github.com/edgeform/contact-gateway/internal/origin"
	"github.com/edgeform/contact-gateway/internal/ratelimit"
	"github.com/edgeform/contact-gateway/internal/validate"
	"github.com/edgeform/contact-gateway/internal/verify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

// Client-facing messages. Policy rejections stay generic so responses
// never coach an adversary; in particular the honeypot shares the
// validation message, and throttle messages don't name the mechanism.
const (
	msgOriginRejected  = "Origin not allowed"
	msgGenericInvalid  = "Invalid submission. Please check your input and try again."
	msgMalicious       = "Your message could not be processed."
	msgSpam            = "Your message appears to contain promotional content and was not sent."
	msgClientThrottled = "Too many requests. Please try again later."
	msgTierThrottled   = "Submission limit reached. Please try again later."
	msgGlobalThrottled = "The service is temporarily unavailable. Please try again later."
	msgVerifyFailed    = "Human verification failed. Please try again."
	msgDispatchFailed  = "Failed to send your message. Please try again later."
	msgServerError     = "Something went wrong. Please try again later."
	msgSuccess         = "Thank you for your message. We'll get back to you soon."
)

type contactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	Company        string `json:"company"`
	TurnstileToken string `json:"turnstileToken"`
}

// ContactHandler orchestrates the submission pipeline: origin check,
// progressive backoff, window rate limiting, validation and content
// classification, optional human verification, then dispatch. Any
// stage failure short-circuits to an error response and an incident
// record.
type ContactHandler struct {
	origins    *origin.Validator
	backoff    *ratelimit.Backoff
	limiter    *ratelimit.Limiter
	classifier *classifier.Classifier
	verifier   *verify.Checker
	dispatcher *dispatch.Dispatcher
	incidents  *incident.Recorder
}

func NewContactHandler(
	origins *origin.Validator,
	backoff *ratelimit.Backoff,
	limiter *ratelimit.Limiter,
	cls *classifier.Classifier,
	verifier *verify.Checker,
	dispatcher *dispatch.Dispatcher,
	incidents *incident.Recorder,
) *ContactHandler {
	return &ContactHandler{
		origins:    origins,
		backoff:    backoff,
		limiter:    limiter,
		classifier: cls,
		verifier:   verifier,
		dispatcher: dispatcher,
		incidents:  incidents,
	}
}

func (h *ContactHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := c.ClientIP()
	country := strings.ToUpper(c.GetHeader("CF-IPCountry"))
	userAgent := c.Request.UserAgent()

	record := func(reason string) {
		h.incidents.Record(clientID, country, userAgent, reason)
	}

	// Origin
	if _, allowed := h.origins.Check(c.Request); !allowed {
		record("origin_rejected")
		respondError(c, http.StatusForbidden, msgOriginRejected)
		return
	}

	// Progressive backoff runs before window limiting so persistent
	// single-client abuse is throttled even under the raw window count.
	wait, err := h.backoff.Check(ctx, clientID)
	if err != nil {
		record("store_error:backoff")
		logrus.WithError(err).Error("backoff check failed")
		respondError(c, http.StatusInternalServerError, msgServerError)
		return
	}
	if wait > 0 {
		record("backoff_active")
		throttle(c, wait, msgClientThrottled)
		return
	}

	// Window rate limiting, per-client then global.
	decision, err := h.limiter.Admit(ctx, clientID, country)
	if err != nil {
		record("store_error:ratelimit")
		logrus.WithError(err).Error("rate limit check failed")
		respondError(c, http.StatusInternalServerError, msgServerError)
		return
	}
	if !decision.Allowed {
		record("rate_limited:" + string(decision.Reason))

		msg := msgClientThrottled
		switch {
		case decision.Reason == ratelimit.RejectGlobal:
			msg = msgGlobalThrottled
		case decision.Tier == ratelimit.TierElevated:
			msg = msgTierThrottled
		}
		throttle(c, decision.RetryAfter, msg)
		return
	}

	// Parse body
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, msgGenericInvalid)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(c, http.StatusBadRequest, msgGenericInvalid)
		return
	}

	// The honeypot response is indistinguishable from a validation
	// failure; revealing the trap would teach bots to avoid it.
	if classifier.HoneypotTripped(payload) {
		record("honeypot_tripped")
		respondError(c, http.StatusBadRequest, msgGenericInvalid)
		return
	}

	var req contactRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, http.StatusBadRequest, msgGenericInvalid)
		return
	}

	risk := h.classifier.Classify(map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"subject": req.Subject,
		"message": req.Message,
		"company": req.Company,
	})

	sub, fieldErrs := validate.Submission(req.Name, req.Email, req.Subject, req.Message, req.Company)
	if len(fieldErrs) > 0 {
		// Plain validation failures are not incidents unless the
		// payload also carried a content-risk signal.
		if risk.HasSignal() {
			record("validation_failed_with_risk_signal")
		}
		respondError(c, http.StatusBadRequest, validate.Join(fieldErrs))
		return
	}

	if risk.HasMalicious() {
		record("malicious_content:" + strings.Join(risk.Malicious, ","))
		respondError(c, http.StatusBadRequest, msgMalicious)
		return
	}
	if risk.HasSpam() {
		record("spam_content:" + strings.Join(risk.Spam, ","))
		respondError(c, http.StatusBadRequest, msgSpam)
		return
	}
	if risk.HasSuspicious() {
		// Telemetry only; suspicious content alone never rejects.
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"rules":      risk.Suspicious,
		}).Info("suspicious content admitted")
	}

	if !h.verifier.Verify(ctx, req.TurnstileToken, clientID) {
		record("verification_failed")
		respondError(c, http.StatusForbidden, msgVerifyFailed)
		return
	}

	if err := h.dispatcher.Send(ctx, sub); err != nil {
		record("dispatch_failed")
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("dispatch failed")

		// Provider detail stays in logs and incidents, never in the
		// response.
		var providerErr *dispatch.ProviderError
		if errors.As(err, &providerErr) {
			respondError(c, http.StatusBadGateway, msgDispatchFailed)
		} else {
			respondError(c, http.StatusInternalServerError, msgDispatchFailed)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msgSuccess,
	})
}

// Preflight exists so OPTIONS /api/contact has an explicit route; the
// CORS middleware answers it before this runs.
func (h *ContactHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

func throttle(c *gin.Context, wait time.Duration, msg string) {
	c.Header("Retry-After", strconv.Itoa(retrySeconds(wait)))
	respondError(c, http.StatusTooManyRequests, msg)
}

func retrySeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
