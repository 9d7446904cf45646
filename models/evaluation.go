package models

// Evaluation is the structured self-critique verdict for one generated answer.
// Sub-scores are on a 1-5 scale; Overall is their average.
type Evaluation struct {
	Relevance              float64  `json:"relevance"`
	Accuracy               float64  `json:"accuracy"`
	Completeness           float64  `json:"completeness"`
	Coherence              float64  `json:"coherence"`
	Overall                float64  `json:"overall"`
	NeedsImprovement       bool     `json:"needs_improvement"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
}

// Issue types reported by the corrective error detector.
const (
	IssueFactualError      = "factual_error"
	IssueMissingInfo       = "missing_info"
	IssueLogicalError      = "logical_error"
	IssueMisinterpretation = "misinterpretation"
	IssueUnsupportedClaim  = "unsupported_claim"
	IssueUnclear           = "unclear"
)

// DetectedIssue is one problem found in a generated answer.
type DetectedIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // high|medium|low
	Location    string `json:"location"`
}

// ErrorAnalysis is the error detector's verdict on one answer.
type ErrorAnalysis struct {
	HasErrors             bool            `json:"has_errors"`
	ConfidenceScore       float64         `json:"confidence_score"`
	DetectedIssues        []DetectedIssue `json:"detected_issues"`
	OverallAssessment     string          `json:"overall_assessment"`
	CorrectionNeeded      bool            `json:"correction_needed"`
	SuggestedImprovements []string        `json:"suggested_improvements,omitempty"`
}

// Validation is the independent check of an answer against the source context.
type Validation struct {
	SupportedClaims    []string `json:"supported_claims"`
	ContradictedClaims []string `json:"contradicted_claims"`
	UnsupportedClaims  []string `json:"unsupported_claims"`
	ValidationScore    float64  `json:"validation_score"`
	NeedsCorrection    bool     `json:"needs_correction"`
	IssuesFound        []string `json:"issues_found,omitempty"`
}

// Hypothetical is one model-generated pseudo-document used to probe the
// embedding space during hypothetical-document expansion. It drives retrieval
// only and is never shown to the user.
type Hypothetical struct {
	Style    string `json:"style"`
	Document string `json:"document"`
	Length   int    `json:"length"`
}
