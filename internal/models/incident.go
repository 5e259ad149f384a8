package models

import "time"

// SecurityIncident is an anonymized record of a rejected or failed
// request. ClientID carries a hash of the caller's address, never the
// address itself.
type SecurityIncident struct {
	Timestamp   time.Time `json:"timestamp"`
	ClientID    string    `json:"client_id"`
	CountryCode string    `json:"country_code,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Reason      string    `json:"reason"`
}
