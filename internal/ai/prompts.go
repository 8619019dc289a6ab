package ai

import (
	"fmt"
	"strings"

	"smartats/internal/config"
	"smartats/internal/errors"
)

// DefaultAnalysisPrompt is the built-in prompt template. The two %s slots take
// the resume text and the job description, in that order. The wording asks for
// a single JSON object so the normalizer has something close to parseable to
// work with even when the model pads it with prose or code fences.
const DefaultAnalysisPrompt = `Hey Act Like a skilled or very experienced ATS (Application Tracking System)
with a deep understanding of the tech field, software engineering, data science, data analysis
and big data engineering. Your task is to evaluate the resume based on the given job description.
You must consider the job market is very competitive and you should provide
best assistance for improving the resumes. Assign the percentage Matching based
on JD and the missing keywords with high accuracy.
resume: %s
description: %s

I want the response in one single string having the structure
{"JD Match":"%%","MissingKeywords":[],"Profile Summary":""}`

// BuildAnalysisPrompt builds the model prompt from resume and job description
// text. Both inputs must be non-empty after trimming. A custom template from
// config (inline or file, hot-reloaded) overrides the built-in default.
func BuildAnalysisPrompt(resumeText, jobDescription string) (string, error) {
	resumeText = strings.TrimSpace(resumeText)
	jobDescription = strings.TrimSpace(jobDescription)

	if resumeText == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			"Resume text must not be empty", nil)
	}
	if jobDescription == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			"Job description must not be empty", nil)
	}

	template := config.ActiveAnalysisPrompt()
	if template == "" {
		template = DefaultAnalysisPrompt
	}

	return fmt.Sprintf(template, resumeText, jobDescription), nil
}
