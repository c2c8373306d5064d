// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the HTTP front door: session endpoints over the graph
// runner, plus the heuristic field capture applied to inbound messages.
package httpapi

import (
	"regexp"
	"strings"
)

var dobPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{2}[./]\d{2}[./]\d{4}`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
}

var addressIndicators = []string{"address:", "address is", "lives at", "residing at"}

var consentKeywords = []string{"consent: yes", "consent confirmed", "provided consent", "consents to", "agreed to"}

var documentKeywords = []string{"license", "passport", "documents:", "id card"}

// CaptureFields scans one human message for customer data stated in free
// text: a date of birth, a residential address, an explicit consent phrase,
// and document mentions. It returns only what it found; callers merge the
// result into the case data without overwriting earlier captures.
func CaptureFields(message string) map[string]interface{} {
	fields := make(map[string]interface{})
	lower := strings.ToLower(message)

	for _, pattern := range dobPatterns {
		if match := pattern.FindString(message); match != "" {
			fields["date_of_birth"] = match
			break
		}
	}

	if address := captureAddress(message, lower); address != "" {
		fields["address"] = address
	}

	for _, kw := range consentKeywords {
		if strings.Contains(lower, kw) {
			fields["consent"] = "confirmed"
			break
		}
	}

	for _, kw := range documentKeywords {
		if strings.Contains(lower, kw) {
			fields["documents_mentioned"] = message
			break
		}
	}

	return fields
}

// captureAddress takes the text after an address indicator up to the first
// plausible end marker.
func captureAddress(message, lower string) string {
	for _, indicator := range addressIndicators {
		idx := strings.Index(lower, indicator)
		if idx < 0 {
			continue
		}
		remaining := strings.TrimSpace(message[idx+len(indicator):])
		end := len(remaining)
		for _, marker := range []string{" and ", "\n", ".", ", consent", ", documents"} {
			// Markers inside the first few characters are part of the
			// address itself (house numbers, abbreviations).
			if pos := strings.Index(remaining, marker); pos > 10 && pos < end {
				end = pos
			}
		}
		address := strings.TrimSpace(remaining[:end])
		if len(address) > 5 {
			return address
		}
	}
	return ""
}
