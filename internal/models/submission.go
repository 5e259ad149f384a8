package models

// ContactSubmission is the validated, normalized form payload. It is
// constructed only after raw input passes validation and is owned by
// the handling request alone.
type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Company string `json:"company,omitempty"`
}
