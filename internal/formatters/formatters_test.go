package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"smartats/internal/types"
)

func sampleOutcome() types.Outcome {
	return types.Outcome{
		Status: types.OutcomeSuccess,
		Result: types.AnalysisResult{
			JDMatch:         "85%",
			MissingKeywords: []string{"kubernetes", "terraform"},
			ProfileSummary:  "Strong backend profile.",
		},
		Attempts: 1,
	}
}

func TestJSONFormatterEmitsResultOnly(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleOutcome(), "json")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not a result object: %v", err)
	}
	if result.JDMatch != "85%" {
		t.Errorf("JDMatch = %q, want %q", result.JDMatch, "85%")
	}
	if strings.Contains(out, "attempts") {
		t.Error("JSON output should not leak outcome metadata")
	}
}

func TestTextFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleOutcome(), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{"JD Match: 85%", "- kubernetes", "- terraform", "Strong backend profile."} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "placeholder") {
		t.Error("success outcome should not carry the fallback notice")
	}
}

func TestTextFormatterFallbackNotice(t *testing.T) {
	outcome := sampleOutcome()
	outcome.Status = types.OutcomeFallback
	outcome.Attempts = 3

	out, err := GlobalRegistry.Format(outcome, "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "placeholder") {
		t.Errorf("fallback outcome missing notice:\n%s", out)
	}
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleOutcome(), "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !strings.HasPrefix(out, "# ATS Analysis") {
		t.Errorf("markdown output missing heading:\n%s", out)
	}
	if !strings.Contains(out, "**JD Match:** 85%") {
		t.Errorf("markdown output missing match line:\n%s", out)
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleOutcome(), "yaml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
