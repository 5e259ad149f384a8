package validate

import (
	"regexp"
	"strings"

	"github.com/edgeform/contact-gateway/internal/models"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 254
	maxSubjectLen = 200
	maxMessageLen = 5000
	maxCompanyLen = 200
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError carries the field name and a reason safe to show the
// client. Validation detail is deliberately specific: it carries no
// information useful to an adversary.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// Join renders field errors as one client-facing message.
func Join(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// Submission checks the raw form fields and, when everything passes,
// builds the normalized ContactSubmission. Trimming happens before
// any length or shape check.
func Submission(name, email, subject, message, company string) (*models.ContactSubmission, []FieldError) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	company = strings.TrimSpace(company)

	var errs []FieldError

	if name == "" {
		errs = append(errs, FieldError{"name", "is required"})
	} else if len(name) > maxNameLen {
		errs = append(errs, FieldError{"name", "is too long"})
	}

	if email == "" {
		errs = append(errs, FieldError{"email", "is required"})
	} else if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{"email", "is not a valid address"})
	}

	if subject == "" {
		errs = append(errs, FieldError{"subject", "is required"})
	} else if len(subject) > maxSubjectLen {
		errs = append(errs, FieldError{"subject", "is too long"})
	}

	if message == "" {
		errs = append(errs, FieldError{"message", "is required"})
	} else if len(message) > maxMessageLen {
		errs = append(errs, FieldError{"message", "is too long"})
	}

	if len(company) > maxCompanyLen {
		errs = append(errs, FieldError{"company", "is too long"})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.ContactSubmission{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
		Company: company,
	}, nil
}
