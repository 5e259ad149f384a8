package incident

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edgeform/contact-gateway/internal/models"
	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultRetention bounds how long incident records live in the store.
const DefaultRetention = 7 * 24 * time.Hour

// Recorder persists security incidents through a buffered channel and
// a background worker so recording never blocks or fails the request
// that triggered it. When the buffer is full the event is dropped:
// observability failures must not become availability failures.
type Recorder struct {
	store     storage.Store
	events    chan models.SecurityIncident
	retention time.Duration
	done      chan struct{}
}

func NewRecorder(store storage.Store, bufferSize int, retention time.Duration) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	r := &Recorder{
		store:     store,
		events:    make(chan models.SecurityIncident, bufferSize),
		retention: retention,
		done:      make(chan struct{}),
	}

	go r.worker()

	return r
}

// Record queues an incident for persistence. The client identifier is
// anonymized before it leaves this method; the raw address is never
// stored.
func (r *Recorder) Record(clientID, countryCode, userAgent, reason string) {
	event := models.SecurityIncident{
		Timestamp:   time.Now().UTC(),
		ClientID:    AnonymizeClientID(clientID),
		CountryCode: countryCode,
		UserAgent:   userAgent,
		Reason:      reason,
	}

	select {
	case r.events <- event:
	default:
		logrus.Warn("incident buffer full, dropping event")
	}
}

// Close stops the worker after draining queued events.
func (r *Recorder) Close() {
	close(r.events)
	<-r.done
}

func (r *Recorder) worker() {
	defer close(r.done)

	for event := range r.events {
		r.persist(event)
	}
}

func (r *Recorder) persist(event models.SecurityIncident) {
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Warn("failed to encode incident")
		return
	}

	key := fmt.Sprintf("incident:%d:%s", event.Timestamp.UnixNano(), event.ClientID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.SetWithTTL(ctx, key, string(data), r.retention); err != nil {
		logrus.WithError(err).Warn("failed to persist incident")
	}
}

// AnonymizeClientID replaces a client address with a stable short
// digest, enough to correlate incidents without retaining the address.
func AnonymizeClientID(clientID string) string {
	sum := sha256.Sum256([]byte(clientID))
	return hex.EncodeToString(sum[:])[:16]
}
