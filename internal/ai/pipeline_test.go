package ai

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"smartats/internal/errors"
	"smartats/internal/types"
)

// stubProvider returns canned responses or errors and counts invocations
type stubProvider struct {
	responses []string
	err       error
	calls     int
	onCall    func(call int)
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	if s.err != nil {
		return "", nil, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (s *stubProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	return &ModelInfo{Name: "stub", Available: true}
}

func (s *stubProvider) Close() error { return nil }

func testLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelError)
}

func TestPipelineEndToEnd(t *testing.T) {
	provider := &stubProvider{
		responses: []string{`{"JD Match": "70%", "MissingKeywords": ["kubernetes"], "Profile Summary": "Solid backend skills."}`},
	}
	pipeline := NewPipeline(provider, 3, testLogger())

	outcome, err := pipeline.Analyze(context.Background(), types.AnalysisInput{
		ResumeText:     "Experienced Python developer with Flask and Docker",
		JobDescription: "Looking for a Kubernetes and Python engineer",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %v, want success", outcome.Status)
	}
	if outcome.Result.JDMatch != "70%" {
		t.Errorf("JDMatch = %q, want %q", outcome.Result.JDMatch, "70%")
	}
	if len(outcome.Result.MissingKeywords) != 1 || outcome.Result.MissingKeywords[0] != "kubernetes" {
		t.Errorf("MissingKeywords = %v, want [kubernetes]", outcome.Result.MissingKeywords)
	}
	if outcome.Result.ProfileSummary != "Solid backend skills." {
		t.Errorf("ProfileSummary = %q", outcome.Result.ProfileSummary)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestPipelineExhaustionReturnsFallback(t *testing.T) {
	provider := &stubProvider{
		err: errors.NewNetworkError(errors.ErrCodeTransientModel, "upstream down", nil),
	}
	pipeline := NewPipeline(provider, 3, testLogger())

	outcome, err := pipeline.Analyze(context.Background(), types.AnalysisInput{
		ResumeText:     "resume",
		JobDescription: "job",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want exactly 3", provider.calls)
	}
	if outcome.Status != types.OutcomeFallback {
		t.Errorf("Status = %v, want fallback", outcome.Status)
	}
	if !outcome.Fallback() {
		t.Error("Fallback() = false, want true")
	}
	if len(outcome.Result.MissingKeywords) == 0 {
		t.Error("fallback MissingKeywords is empty, want degraded-service entry")
	}
	if !strings.Contains(strings.ToLower(outcome.Result.ProfileSummary), "unavailable") {
		t.Errorf("fallback summary %q lacks service-unavailable indication", outcome.Result.ProfileSummary)
	}
	if outcome.Result.JDMatch != "50%" {
		t.Errorf("fallback JDMatch = %q, want %q", outcome.Result.JDMatch, "50%")
	}
}

func TestPipelineRetriesUnparsableThenSucceeds(t *testing.T) {
	provider := &stubProvider{
		responses: []string{
			"no structure here at all",
			`{"JD Match": "65%", "MissingKeywords": [], "Profile Summary": "Second try."}`,
		},
	}
	pipeline := NewPipeline(provider, 3, testLogger())

	outcome, err := pipeline.Analyze(context.Background(), types.AnalysisInput{
		ResumeText:     "resume",
		JobDescription: "job",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %v, want success", outcome.Status)
	}
	if outcome.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", outcome.Attempts)
	}
}

func TestPipelineInvalidInputAbortsImmediately(t *testing.T) {
	provider := &stubProvider{responses: []string{"{}"}}
	pipeline := NewPipeline(provider, 3, testLogger())

	_, err := pipeline.Analyze(context.Background(), types.AnalysisInput{
		ResumeText:     "",
		JobDescription: "job",
	})
	if err == nil {
		t.Fatal("expected error for empty resume text")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 (no attempts on invalid input)", provider.calls)
	}
}

func TestPipelineNonRetryableErrorStopsAttempts(t *testing.T) {
	provider := &stubProvider{
		err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "bad credentials", nil),
	}
	pipeline := NewPipeline(provider, 3, testLogger())

	outcome, err := pipeline.Analyze(context.Background(), types.AnalysisInput{
		ResumeText:     "resume",
		JobDescription: "job",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (no retry on terminal failure)", provider.calls)
	}
	if outcome.Status != types.OutcomeFallback {
		t.Errorf("Status = %v, want fallback", outcome.Status)
	}
}

func TestPipelineCanceledContextSkipsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	provider := &stubProvider{
		err: errors.NewNetworkError(errors.ErrCodeTransientModel, "upstream down", nil),
	}
	// Cancel after the first failed attempt so the backoff select fires on
	// ctx.Done instead of sleeping
	provider.onCall = func(call int) {
		if call == 1 {
			cancel()
		}
	}
	pipeline := NewPipeline(provider, 3, testLogger())

	_, err := pipeline.Analyze(ctx, types.AnalysisInput{
		ResumeText:     "resume",
		JobDescription: "job",
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}
