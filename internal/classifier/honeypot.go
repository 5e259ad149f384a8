package classifier

import (
	"fmt"
	"strings"
)

// Decoy fields are rendered invisibly on the form; legitimate clients
// never fill them. Hidden flags are pre-populated checkboxes a human
// would leave untouched.
var (
	decoyFields = []string{"website", "url", "fax", "phone2", "comment2", "address2"}

	hiddenFlagFields = []string{"botcheck", "contact_me_by_fax_only", "winnie"}
)

// HoneypotTripped reports whether any decoy or hidden-flag field in
// the raw payload carries a non-empty value. It takes the raw decoded
// body rather than the typed submission because the trap fields are
// never part of the real schema.
func HoneypotTripped(payload map[string]interface{}) bool {
	for _, name := range decoyFields {
		if hasValue(payload, name) {
			return true
		}
	}
	for _, name := range hiddenFlagFields {
		if hasValue(payload, name) {
			return true
		}
	}
	return false
}

func hasValue(payload map[string]interface{}, name string) bool {
	raw, ok := payload[name]
	if !ok || raw == nil {
		return false
	}

	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v)) != ""
	}
}
