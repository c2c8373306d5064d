// SPDX-License-Identifier: Apache-2.0

package guardrails

import "regexp"

// piiPattern masks one category of personal data in log text. Order
// matters: IBANs and prefixed phone numbers must be matched before the
// generic card digit run.
type piiPattern struct {
	pattern *regexp.Regexp
	mask    string
}

var defaultPIIPatterns = []piiPattern{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`), "[IBAN]"},
	{regexp.MustCompile(`(\+|00)\d{1,3}[ \-]?\d{2,4}([ \-]?\d{2,4}){2,4}`), "[PHONE]"},
	{regexp.MustCompile(`\b(?:\d[ \-]?){13,19}\b`), "[CARD]"},
	{regexp.MustCompile(`\b\d{2}[./]\d{2}[./]\d{4}\b`), "[DOB]"},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "[DOB]"},
}

// PIIMasker replaces personal data in text with typed placeholders. It is
// used on log output only; case data keeps the original values.
type PIIMasker struct {
	patterns []piiPattern
}

// NewPIIMasker creates a masker with the default pattern set.
func NewPIIMasker() *PIIMasker {
	return &PIIMasker{patterns: defaultPIIPatterns}
}

// Mask returns text with all matches replaced by their placeholders.
func (m *PIIMasker) Mask(text string) string {
	for _, p := range m.patterns {
		text = p.pattern.ReplaceAllString(text, p.mask)
	}
	return text
}
