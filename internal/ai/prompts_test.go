package ai

import (
	"strings"
	"testing"

	"smartats/internal/errors"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	t.Run("embeds both inputs", func(t *testing.T) {
		prompt, err := BuildAnalysisPrompt("Go developer with five years experience", "Backend engineer role")
		if err != nil {
			t.Fatalf("BuildAnalysisPrompt() error = %v", err)
		}
		if !strings.Contains(prompt, "Go developer with five years experience") {
			t.Error("prompt missing resume text")
		}
		if !strings.Contains(prompt, "Backend engineer role") {
			t.Error("prompt missing job description")
		}
		if !strings.Contains(prompt, "JD Match") {
			t.Error("prompt missing required response structure")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		first, _ := BuildAnalysisPrompt("resume", "job")
		second, _ := BuildAnalysisPrompt("resume", "job")
		if first != second {
			t.Error("same inputs produced different prompts")
		}
	})

	tests := []struct {
		name   string
		resume string
		job    string
	}{
		{"empty resume", "", "a job"},
		{"empty job description", "a resume", ""},
		{"whitespace-only resume", "  \n\t ", "a job"},
		{"whitespace-only job description", "a resume", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAnalysisPrompt(tt.resume, tt.job)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want %s", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}
