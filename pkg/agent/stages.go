// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StageDefinition is the configuration of one workflow stage: its role text,
// the fields it is responsible for collecting, and the gateway capabilities
// it may call.
type StageDefinition struct {
	Name                 string   `yaml:"name"`
	Role                 string   `yaml:"role"`
	RequiredFields       []string `yaml:"required_fields,omitempty"`
	RequiredCapabilities []string `yaml:"required_capabilities,omitempty"`
}

// DefaultStages returns the built-in onboarding stage sequence.
func DefaultStages() []StageDefinition {
	return []StageDefinition{
		{
			Name: "intake",
			Role: "You are the customer intake reviewer in an insurance onboarding workflow. " +
				"Collect the customer's essential information through the conversation, confirm explicit consent " +
				"for data processing and background checks, and only pass the case once every required field has " +
				"been mentioned. Ask politely for anything missing.",
			RequiredFields: []string{
				"name", "email", "date_of_birth", "address", "insurance_needs", "consent",
			},
			RequiredCapabilities: []string{
				"postgres.get_customer_by_email",
				"postgres.get_customer_history",
			},
		},
		{
			Name: "verification",
			Role: "You are the identity verification reviewer. Confirm the customer's identity against the " +
				"documents they uploaded: list the available documents, check their metadata, and make sure at " +
				"least one valid identity document matches the collected customer data.",
			RequiredCapabilities: []string{
				"postgres.get_customer_by_email",
				"blob.list_customer_documents",
				"blob.get_document_url",
				"blob.get_document_metadata",
			},
		},
		{
			Name: "eligibility",
			Role: "You are the eligibility reviewer. Judge from the collected case data whether the customer " +
				"qualifies for the requested insurance products. Consider age, residency, and the stated " +
				"insurance needs. Flag borderline cases for review rather than failing them.",
		},
		{
			Name: "recommendation",
			Role: "You are the product recommendation reviewer. Based on the customer's needs and eligibility, " +
				"propose the insurance products that fit, with a short rationale per product the customer can " +
				"understand.",
		},
		{
			Name: "compliance",
			Role: "You are the compliance reviewer. Check the case against the applicable onboarding policies: " +
				"search the policy index for relevant rules, verify the case satisfies them, and record each " +
				"policy requirement you checked.",
			RequiredCapabilities: []string{
				"rag.search_policies",
				"rag.check_compliance",
				"rag.get_policy_requirements",
			},
		},
		{
			Name: "action",
			Role: "You are the final action reviewer. The case has cleared every earlier stage: persist the " +
				"final onboarding state and send the customer the email matching the outcome (approved, " +
				"pending, or rejected). Pass only once both actions succeeded.",
			RequiredCapabilities: []string{
				"email.send_kyc_approved_email",
				"email.send_kyc_pending_email",
				"email.send_kyc_rejected_email",
				"email.send_follow_up_email",
				"postgres.save_kyc_session_state",
			},
		},
	}
}

// LoadStages reads stage definitions from a YAML file.
func LoadStages(path string) ([]StageDefinition, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stages: read %s: %w", path, err)
	}
	var file struct {
		Stages []StageDefinition `yaml:"stages"`
	}
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("stages: parse %s: %w", path, err)
	}
	if err := ValidateStages(file.Stages); err != nil {
		return nil, fmt.Errorf("stages: %s: %w", path, err)
	}
	return file.Stages, nil
}

// ValidateStages checks that the roster is usable: non-empty, uniquely
// named, with role text for every stage.
func ValidateStages(defs []StageDefinition) error {
	if len(defs) == 0 {
		return fmt.Errorf("at least one stage is required")
	}
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("stage %d has no name", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("duplicate stage %q", def.Name)
		}
		seen[def.Name] = true
		if def.Role == "" {
			return fmt.Errorf("stage %q has no role text", def.Name)
		}
	}
	return nil
}

// StageNames returns the ordered stage identifiers of a roster.
func StageNames(defs []StageDefinition) []string {
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}
