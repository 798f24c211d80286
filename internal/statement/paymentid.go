package statement

import (
	"regexp"
	"strings"
)

// paymentIDPatterns are tried in order; labeled forms win over the bare number fallback
var paymentIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)payment\s*(?:id|no|number|#)\s*[:#№.]?\s*(\d{3,})`),
	regexp.MustCompile(`(?i)invoice\s*(?:id|no|number|#)?\s*[:#№.]?\s*(\d{3,})`),
	regexp.MustCompile(`(?i)contract\s*(?:id|no|number|#)?\s*[:#№.]?\s*(\d{3,})`),
	regexp.MustCompile(`(?i)\bID\s*[:#№]\s*(\d{3,})`),
	regexp.MustCompile(`№\s*(\d{3,})`),
	regexp.MustCompile(`\b(\d{6,})\b`),
}

// ExtractPaymentID returns the first payment identifier found in free text, or nil
func ExtractPaymentID(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, re := range paymentIDPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			id := m[1]
			return &id
		}
	}
	return nil
}
