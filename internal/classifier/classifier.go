package classifier

// Result names the rules each risk category matched. Malicious and
// spam matches are hard rejections for the caller; suspicious matches
// are surfaced for telemetry only.
type Result struct {
	Malicious  []string
	Spam       []string
	Suspicious []string
}

func (r Result) HasMalicious() bool  { return len(r.Malicious) > 0 }
func (r Result) HasSpam() bool       { return len(r.Spam) > 0 }
func (r Result) HasSuspicious() bool { return len(r.Suspicious) > 0 }

// HasSignal reports whether any category matched at all.
func (r Result) HasSignal() bool {
	return r.HasMalicious() || r.HasSpam() || r.HasSuspicious()
}

type Classifier struct {
	rules []Rule
}

func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify matches every rule against every user-supplied text field.
// Rules run per field so shape checks like single-character fields
// work; matched rule names are reported once each.
func (c *Classifier) Classify(fields map[string]string) Result {
	var result Result
	matched := make(map[string]struct{})

	for _, rule := range c.rules {
		for _, value := range fields {
			if value == "" || !rule.Pattern.MatchString(value) {
				continue
			}
			if _, seen := matched[rule.Name]; seen {
				break
			}
			matched[rule.Name] = struct{}{}

			switch rule.Severity {
			case SeverityMalicious:
				result.Malicious = append(result.Malicious, rule.Name)
			case SeveritySpam:
				result.Spam = append(result.Spam, rule.Name)
			case SeveritySuspicious:
				result.Suspicious = append(result.Suspicious, rule.Name)
			}
			break
		}
	}

	return result
}
