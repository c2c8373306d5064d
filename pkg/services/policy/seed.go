package policy

// DefaultDocuments is the built-in policy corpus used when no documents
// file is configured. Categories mirror the compliance checks the workflow
// runs: kyc, aml, eligibility, requirements, compliance.
func DefaultDocuments() []Document {
	return []Document{
		{
			Category: "kyc",
			Title:    "Customer Identity Verification Policy",
			Content: "All applicants must provide a government-issued photo ID and proof of " +
				"address dated within the last three months. Identity documents must be " +
				"verified against the application data before any product is issued. " +
				"Discrepancies in name, date of birth, or address require manual review.",
		},
		{
			Category: "kyc",
			Title:    "Document Retention Policy",
			Content: "Copies of identity and address documents collected during onboarding " +
				"are retained for ten years after the relationship ends. Documents are " +
				"stored encrypted and access is logged.",
		},
		{
			Category: "aml",
			Title:    "Anti-Money-Laundering Screening Policy",
			Content: "Every applicant is screened against applicable sanction and " +
				"politically-exposed-person lists before approval. A positive match blocks " +
				"automatic approval and routes the case to the compliance team. Screening " +
				"results are recorded with the case.",
		},
		{
			Category: "eligibility",
			Title:    "Life Insurance Eligibility Criteria",
			Content: "Applicants for life insurance must be between 18 and 75 years of age " +
				"at the time of application and resident in a supported country. Applicants " +
				"over 60 require an additional medical questionnaire.",
		},
		{
			Category: "eligibility",
			Title:    "Health Insurance Eligibility Criteria",
			Content: "Health insurance applicants must be 18 or older and must disclose " +
				"pre-existing conditions. Coverage for pre-existing conditions begins after " +
				"a twelve-month waiting period unless continuous prior coverage is proven.",
		},
		{
			Category: "requirements",
			Title:    "Onboarding Data Requirements",
			Content: "A complete onboarding application contains full legal name, date of " +
				"birth, current residential address, contact email, the insurance product " +
				"requested, and explicit consent to data processing. Applications missing " +
				"any of these fields must not be submitted for approval.",
		},
		{
			Category: "compliance",
			Title:    "Consent and Data Processing Policy",
			Content: "Explicit customer consent to data processing is required before any " +
				"personal data is stored or shared with underwriting. Consent must be " +
				"recorded with a timestamp and is revocable at any time.",
		},
		{
			Category: "compliance",
			Title:    "Suitability and Advice Policy",
			Content: "Product recommendations must match the customer's stated needs and " +
				"situation. The reasoning behind each recommendation is recorded with the " +
				"case so it can be reviewed by a specialist.",
		},
	}
}
