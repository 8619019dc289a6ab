package types

// AnalysisInput represents the input for a resume/job-description match analysis
type AnalysisInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// AnalysisResult is the canonical, always-fully-populated result shape.
// JDMatch is a percentage string ("85%") or the "N/A" sentinel when the
// model produced a summary but no usable score.
type AnalysisResult struct {
	JDMatch         string   `json:"jd_match"`
	MissingKeywords []string `json:"missing_keywords"`
	ProfileSummary  string   `json:"profile_summary"`
}

// OutcomeStatus tags how an analysis concluded
type OutcomeStatus string

const (
	// OutcomeSuccess means the model response was normalized into a usable result
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFallback means all attempts failed and a fixed placeholder result
	// was substituted so callers still receive a complete object
	OutcomeFallback OutcomeStatus = "fallback"
)

// Outcome is the terminal state of one pipeline run. Result is always fully
// populated, for both statuses.
type Outcome struct {
	Status   OutcomeStatus  `json:"status"`
	Result   AnalysisResult `json:"result"`
	Attempts int            `json:"attempts"`
}

// Fallback reports whether this outcome carries the placeholder result
func (o Outcome) Fallback() bool {
	return o.Status == OutcomeFallback
}
