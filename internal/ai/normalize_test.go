package ai

import (
	"reflect"
	"testing"

	"smartats/internal/errors"
)

func TestNormalizeWellFormedResponses(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantMatch    string
		wantKeywords []string
		wantSummary  string
	}{
		{
			name:         "exact JSON",
			raw:          `{"JD Match": "85%", "MissingKeywords": ["docker", "kubernetes"], "Profile Summary": "Strong candidate."}`,
			wantMatch:    "85%",
			wantKeywords: []string{"docker", "kubernetes"},
			wantSummary:  "Strong candidate.",
		},
		{
			name: "fenced code block with language tag",
			raw: "```json\n{\"JD Match\": \"70%\", \"MissingKeywords\": [\"go\"], \"Profile Summary\": \"Good fit.\"}\n```",
			wantMatch:    "70%",
			wantKeywords: []string{"go"},
			wantSummary:  "Good fit.",
		},
		{
			name:         "JSON with trailing prose",
			raw:          `Here is my evaluation: {"JD Match": "60%", "MissingKeywords": [], "Profile Summary": "Decent."} Hope this helps!`,
			wantMatch:    "60%",
			wantKeywords: []string{},
			wantSummary:  "Decent.",
		},
		{
			name:         "snake_case aliases",
			raw:          `{"jd_match": "90%", "missing_keywords": ["rust"], "profile_summary": "Excellent."}`,
			wantMatch:    "90%",
			wantKeywords: []string{"rust"},
			wantSummary:  "Excellent.",
		},
		{
			name:         "loose aliases",
			raw:          `{"score": "40%", "gaps": ["sql"], "analysis": "Needs work."}`,
			wantMatch:    "40%",
			wantKeywords: []string{"sql"},
			wantSummary:  "Needs work.",
		},
		{
			name:         "single-quoted pseudo JSON",
			raw:          `{'JD Match': '55%', 'MissingKeywords': ['aws'], 'Profile Summary': 'Average.'}`,
			wantMatch:    "55%",
			wantKeywords: []string{"aws"},
			wantSummary:  "Average.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if result.JDMatch != tt.wantMatch {
				t.Errorf("JDMatch = %q, want %q", result.JDMatch, tt.wantMatch)
			}
			if !reflect.DeepEqual(result.MissingKeywords, tt.wantKeywords) {
				t.Errorf("MissingKeywords = %v, want %v", result.MissingKeywords, tt.wantKeywords)
			}
			if result.ProfileSummary != tt.wantSummary {
				t.Errorf("ProfileSummary = %q, want %q", result.ProfileSummary, tt.wantSummary)
			}
		})
	}
}

func TestNormalizeCoercions(t *testing.T) {
	t.Run("bare numeric match gets percent suffix", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": 85, "Profile Summary": "ok"}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if result.JDMatch != "85%" {
			t.Errorf("JDMatch = %q, want %q", result.JDMatch, "85%")
		}
	})

	t.Run("numeric string match gets percent suffix", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": "85", "Profile Summary": "ok"}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if result.JDMatch != "85%" {
			t.Errorf("JDMatch = %q, want %q", result.JDMatch, "85%")
		}
	})

	t.Run("non-numeric match yields sentinel", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": "very high", "Profile Summary": "ok"}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if result.JDMatch != MatchUnavailable {
			t.Errorf("JDMatch = %q, want %q", result.JDMatch, MatchUnavailable)
		}
	})

	t.Run("missing keywords field yields empty slice", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": "75%", "Profile Summary": "ok"}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if result.MissingKeywords == nil || len(result.MissingKeywords) != 0 {
			t.Errorf("MissingKeywords = %v, want empty slice", result.MissingKeywords)
		}
	})

	t.Run("comma-delimited keyword string is split and trimmed", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": "75%", "MissingKeywords": "docker, kubernetes , go"}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		want := []string{"docker", "kubernetes", "go"}
		if !reflect.DeepEqual(result.MissingKeywords, want) {
			t.Errorf("MissingKeywords = %v, want %v", result.MissingKeywords, want)
		}
	})

	t.Run("missing summary yields empty string", func(t *testing.T) {
		result, err := Normalize(`{"JD Match": "75%", "MissingKeywords": ["go"]}`)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if result.ProfileSummary != "" {
			t.Errorf("ProfileSummary = %q, want empty", result.ProfileSummary)
		}
	})
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"pure prose", "The candidate looks fine to me, no structured data here."},
		{"empty input", ""},
		{"whitespace only", "   \n\t  "},
		{"all fields sentinel or empty", `{"JD Match": "unknown", "MissingKeywords": [], "Profile Summary": ""}`},
		{"object with only unknown keys", `{"verdict": "maybe", "confidence": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if err == nil {
				t.Fatal("Normalize() expected error, got nil")
			}
			if !errors.HasCode(err, errors.ErrCodeUnparsableResponse) {
				t.Errorf("error code = %v, want %s", err, errors.ErrCodeUnparsableResponse)
			}
		})
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	raw := "```\n{\"match\": 72, \"keywords\": \"etcd,raft\", \"summary\": \"Distributed systems background.\"}\n```"

	first, err1 := Normalize(raw)
	second, err2 := Normalize(raw)

	if err1 != nil || err2 != nil {
		t.Fatalf("Normalize() errors = %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated normalization differs: %+v vs %+v", first, second)
	}
}

func TestNormalizePartialRecovery(t *testing.T) {
	// A useful summary with an unparsable percentage is still useful
	result, err := Normalize(`{"JD Match": "n/a-ish", "Profile Summary": "Relevant cloud experience."}`)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.JDMatch != MatchUnavailable {
		t.Errorf("JDMatch = %q, want sentinel %q", result.JDMatch, MatchUnavailable)
	}
	if result.ProfileSummary != "Relevant cloud experience." {
		t.Errorf("ProfileSummary = %q", result.ProfileSummary)
	}
}
