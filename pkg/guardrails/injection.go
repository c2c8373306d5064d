// SPDX-License-Identifier: Apache-2.0

package guardrails

import "regexp"

// blockedMessageReason is what the customer sees when a message is rejected.
const blockedMessageReason = "Your message could not be processed. Please rephrase it and try again."

// injectionPatterns covers instruction-override and prompt-extraction
// attempts seen against tool-calling agents. High precision over recall:
// a false block costs a customer turn.
var injectionPatterns = []struct {
	rule    string
	pattern *regexp.Regexp
}{
	{"instruction_override", regexp.MustCompile(`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|prompts?|rules?)`)},
	{"persona_switch", regexp.MustCompile(`(?i)(you\s+are\s+now\s+(a|an)\s+|pretend\s+(you\s+are|to\s+be)\s+|roleplay\s+as\s+)`)},
	{"prompt_extraction", regexp.MustCompile(`(?i)(show|reveal|print|display|repeat)\s+(me\s+)?your\s+(system\s+)?(prompt|instructions?)`)},
	{"mode_escape", regexp.MustCompile(`(?i)(developer|debug|sudo|admin|maintenance|DAN)\s+mode`)},
	{"delimiter_injection", regexp.MustCompile(`(?i)(<\|.*\|>|\[INST\]|<<SYS>>|\]\]\s*system\s*:)`)},
}

// InjectionDetector flags prompt injection attempts in customer messages.
type InjectionDetector struct {
	patterns []struct {
		rule    string
		pattern *regexp.Regexp
	}
}

// NewInjectionDetector creates a detector with the default pattern set.
func NewInjectionDetector() *InjectionDetector {
	return &InjectionDetector{patterns: injectionPatterns}
}

// Check screens one message.
func (d *InjectionDetector) Check(message string) ScreenResult {
	for _, p := range d.patterns {
		if p.pattern.MatchString(message) {
			return ScreenResult{
				Blocked: true,
				Reason:  blockedMessageReason,
				Rule:    p.rule,
			}
		}
	}
	return ScreenResult{}
}
