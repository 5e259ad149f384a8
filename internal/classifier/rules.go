package classifier

import "regexp"

type Severity string

const (
	SeverityMalicious  Severity = "malicious"
	SeveritySpam       Severity = "spam"
	SeveritySuspicious Severity = "suspicious"
)

// Rule is one named content matcher. Rules are data so new patterns
// can be added and tested without touching the pipeline.
type Rule struct {
	Name     string
	Severity Severity
	Pattern  *regexp.Regexp
}

// DefaultRules covers the three risk categories: injection and
// executable payloads, promotional and scam vocabulary, and
// placeholder or throwaway content.
func DefaultRules() []Rule {
	return []Rule{
		// Malicious: anything that only makes sense as an injection attempt.
		{Name: "script_tag", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)<\s*script`)},
		{Name: "javascript_uri", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)javascript\s*:`)},
		{Name: "event_handler", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)\bon(?:click|load|error|mouseover|focus|submit)\s*=`)},
		{Name: "iframe_tag", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)<\s*iframe`)},
		{Name: "eval_call", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)\b(?:eval|exec)\s*\(`)},
		{Name: "executable_ext", Severity: SeverityMalicious, Pattern: regexp.MustCompile(`(?i)\.(?:exe|bat|cmd|scr|vbs|ps1|msi)\b`)},

		// Spam: promotional and scam vocabulary.
		{Name: "pharma", Severity: SeveritySpam, Pattern: regexp.MustCompile(`(?i)\b(?:viagra|cialis|pharmacy|pills)\b`)},
		{Name: "gambling", Severity: SeveritySpam, Pattern: regexp.MustCompile(`(?i)\b(?:casino|gambling|lottery|jackpot|betting)\b`)},
		{Name: "windfall", Severity: SeveritySpam, Pattern: regexp.MustCompile(`(?i)\b(?:congratulations|you (?:have )?won|claim your (?:prize|reward))\b`)},
		{Name: "large_sum", Severity: SeveritySpam, Pattern: regexp.MustCompile(`[$€£]\s?\d{1,3}(?:,\d{3})+|\b\d+\s?million dollars\b`)},
		{Name: "urgency", Severity: SeveritySpam, Pattern: regexp.MustCompile(`(?i)\b(?:act now|limited time offer|urgent response|wire transfer|100% free)\b`)},
		{Name: "seo_offer", Severity: SeveritySpam, Pattern: regexp.MustCompile(`(?i)\b(?:seo services|boost your (?:ranking|traffic)|backlinks? package)\b`)},

		// Suspicious: telemetry only, never a rejection by itself.
		{Name: "placeholder", Severity: SeveritySuspicious, Pattern: regexp.MustCompile(`(?i)\b(?:test(?:ing)?123?|asdf+|qwerty|lorem ipsum|foo ?bar)\b`)},
		{Name: "single_char", Severity: SeveritySuspicious, Pattern: regexp.MustCompile(`\A\s*\S\s*\z`)},
		{Name: "repeated_run", Severity: SeveritySuspicious, Pattern: regexp.MustCompile(`(.)\1{9,}`)},
	}
}
