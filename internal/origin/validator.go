package origin

import (
	"net/http"
	"net/url"
)

// Validator checks a request's declared origin against a fixed
// allow-list. The same check serves the actual request and the CORS
// preflight so preflight cannot probe disallowed origins.
type Validator struct {
	allowed map[string]struct{}
}

func NewValidator(origins []string) *Validator {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Validator{allowed: allowed}
}

// Resolve returns the request's effective origin. When the Origin
// header is absent but a Referer is present, the referrer's
// scheme+host stands in for it; some clients omit Origin on simple
// requests.
func (v *Validator) Resolve(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}

	referer := r.Header.Get("Referer")
	if referer == "" {
		return ""
	}

	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}

// Allowed reports whether origin exactly matches an allow-list entry.
func (v *Validator) Allowed(origin string) bool {
	_, ok := v.allowed[origin]
	return ok
}

// Check resolves and validates in one step.
func (v *Validator) Check(r *http.Request) (string, bool) {
	origin := v.Resolve(r)
	return origin, v.Allowed(origin)
}
