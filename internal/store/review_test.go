package store

import (
	"reflect"
	"strings"
	"testing"

	"smartats/internal/types"
)

func TestNewReview(t *testing.T) {
	outcome := types.Outcome{
		Status: types.OutcomeSuccess,
		Result: types.AnalysisResult{
			JDMatch:         "85%",
			MissingKeywords: []string{"kubernetes", "terraform"},
			ProfileSummary:  "Strong platform background.",
		},
		Attempts: 2,
	}
	input := types.AnalysisInput{
		ResumeText:     "Platform engineer with Go and AWS",
		JobDescription: "SRE role",
	}

	review := NewReview(input, outcome)

	if review.JDMatch != "85%" {
		t.Errorf("JDMatch = %q, want %q", review.JDMatch, "85%")
	}
	if review.MatchPercent != 85 {
		t.Errorf("MatchPercent = %v, want 85", review.MatchPercent)
	}
	if review.MissingKeywords != "kubernetes,terraform" {
		t.Errorf("MissingKeywords = %q", review.MissingKeywords)
	}
	if review.Fallback {
		t.Error("Fallback = true, want false")
	}
	if review.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", review.Attempts)
	}
}

func TestNewReviewFallbackOutcome(t *testing.T) {
	outcome := types.Outcome{
		Status: types.OutcomeFallback,
		Result: types.AnalysisResult{
			JDMatch:         "50%",
			MissingKeywords: []string{"Unable to analyze - service temporarily unavailable"},
			ProfileSummary:  "Service unavailable.",
		},
		Attempts: 3,
	}

	review := NewReview(types.AnalysisInput{ResumeText: "r", JobDescription: "j"}, outcome)

	if !review.Fallback {
		t.Error("Fallback = false, want true for fallback outcome")
	}
	if review.MatchPercent != 50 {
		t.Errorf("MatchPercent = %v, want 50", review.MatchPercent)
	}
}

func TestNewReviewExcerptsLongResume(t *testing.T) {
	longResume := strings.Repeat("experience ", 1000)
	review := NewReview(types.AnalysisInput{ResumeText: longResume, JobDescription: "j"}, types.Outcome{})

	if len(review.ResumeExcerpt) != resumeExcerptLimit {
		t.Errorf("ResumeExcerpt length = %d, want %d", len(review.ResumeExcerpt), resumeExcerptLimit)
	}
}

func TestParseMatchPercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"85%", 85},
		{"72.5%", 72.5},
		{"85", 85},
		{"N/A", 0},
		{"", 0},
		{"high", 0},
	}

	for _, tt := range tests {
		if got := parseMatchPercent(tt.in); got != tt.want {
			t.Errorf("parseMatchPercent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReviewKeywords(t *testing.T) {
	review := &Review{MissingKeywords: "go,rust"}
	if !reflect.DeepEqual(review.Keywords(), []string{"go", "rust"}) {
		t.Errorf("Keywords() = %v", review.Keywords())
	}

	empty := &Review{}
	if len(empty.Keywords()) != 0 {
		t.Errorf("Keywords() on empty = %v, want empty slice", empty.Keywords())
	}
}
