package ai

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"smartats/internal/errors"
	"smartats/internal/types"
)

// FallbackKeyword is the single keyword entry signaling degraded service
const FallbackKeyword = "Unable to analyze - service temporarily unavailable"

// FallbackResult returns the fixed placeholder substituted when every attempt
// failed. A neutral 50% score: the service has no evidence either way, and 0%
// would read as a verdict on the candidate.
func FallbackResult() types.AnalysisResult {
	return types.AnalysisResult{
		JDMatch:         "50%",
		MissingKeywords: []string{FallbackKeyword},
		ProfileSummary: "The analysis service is temporarily unavailable. " +
			"This is a placeholder result, not an assessment of the resume. Please try again later.",
	}
}

// UsageRecorder receives pipeline completion events for metrics
type UsageRecorder interface {
	RecordAnalysis(ctx context.Context, status types.OutcomeStatus, attempts int, duration time.Duration, usage *TokenUsage)
}

// Pipeline orchestrates the full analysis: prompt build, model invocation,
// normalization, and retry with fallback. Transient model failures, empty
// replies and unparsable replies are retried with exponential backoff; after
// the attempt budget is spent a fixed fallback result is substituted so the
// caller always receives a complete, well-typed object. Only input validation
// failures surface as errors.
type Pipeline struct {
	provider    Provider
	maxAttempts int
	logger      *errors.Logger
	recorder    UsageRecorder
}

// NewPipeline creates a pipeline around a provider. maxAttempts below 1 is
// clamped to 1.
func NewPipeline(provider Provider, maxAttempts int, logger *errors.Logger) *Pipeline {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pipeline{
		provider:    provider,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// SetUsageRecorder attaches a metrics sink. Safe to leave unset.
func (p *Pipeline) SetUsageRecorder(recorder UsageRecorder) {
	p.recorder = recorder
}

// Analyze runs the pipeline for one request
func (p *Pipeline) Analyze(ctx context.Context, input types.AnalysisInput) (types.Outcome, error) {
	tracer := otel.Tracer("smartats.ai.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	span.SetAttributes(
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.job_length", len(input.JobDescription)),
		attribute.Int("pipeline.max_attempts", p.maxAttempts),
	)

	start := time.Now()

	prompt, err := BuildAnalysisPrompt(input.ResumeText, input.JobDescription)
	if err != nil {
		span.RecordError(err)
		return types.Outcome{}, err
	}

	var lastErr error
	var lastUsage *TokenUsage

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			p.logger.Warn("Retrying analysis attempt",
				"attempt", attempt,
				"max_attempts", p.maxAttempts,
				"error", lastErr.Error())

			if err := p.backoff(ctx, attempt); err != nil {
				span.RecordError(err)
				return types.Outcome{}, err
			}
		}

		raw, usage, err := p.provider.Generate(ctx, prompt)
		if usage != nil {
			lastUsage = usage
		}
		if err != nil {
			lastErr = err
			if !isRetryableCode(err) {
				// Auth and other terminal upstream failures; further attempts
				// cannot change the outcome
				p.logger.LogError(err, "Analysis attempt failed with non-retryable error",
					"attempt", attempt)
				break
			}
			continue
		}

		result, err := Normalize(raw)
		if err != nil {
			lastErr = err
			p.logger.Debug("Model response failed normalization",
				"attempt", attempt,
				"response_length", len(raw))
			continue
		}

		if attempt > 1 {
			p.logger.Info("Analysis succeeded after retry",
				"successful_attempt", attempt)
		}

		outcome := types.Outcome{
			Status:   types.OutcomeSuccess,
			Result:   result,
			Attempts: attempt,
		}
		p.record(ctx, outcome, time.Since(start), lastUsage)
		span.SetAttributes(
			attribute.String("pipeline.status", string(outcome.Status)),
			attribute.Int("pipeline.attempts", outcome.Attempts),
		)
		return outcome, nil
	}

	p.logger.LogError(lastErr, "Analysis failed after all attempts, returning fallback result",
		"attempts", p.maxAttempts)

	outcome := types.Outcome{
		Status:   types.OutcomeFallback,
		Result:   FallbackResult(),
		Attempts: p.maxAttempts,
	}
	p.record(ctx, outcome, time.Since(start), lastUsage)
	span.SetAttributes(
		attribute.String("pipeline.status", string(outcome.Status)),
		attribute.Int("pipeline.attempts", outcome.Attempts),
	)
	return outcome, nil
}

// backoff sleeps before retry attempt n, with exponential growth and jitter
// to prevent thundering herd. Returns early when the context is canceled.
func (p *Pipeline) backoff(ctx context.Context, attempt int) error {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-2))) * time.Second
	jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
	jitter := time.Duration(0)
	if jitterMax.Sign() > 0 {
		if jitterBig, err := rand.Int(rand.Reader, jitterMax); err == nil {
			jitter = time.Duration(jitterBig.Int64())
		}
	}
	// Cap maximum backoff at 30 seconds
	delay := min(baseDelay+jitter, 30*time.Second)

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) record(ctx context.Context, outcome types.Outcome, duration time.Duration, usage *TokenUsage) {
	if p.recorder != nil {
		p.recorder.RecordAnalysis(ctx, outcome.Status, outcome.Attempts, duration, usage)
	}
}

// isRetryableCode reports whether a pipeline error is worth another attempt
func isRetryableCode(err error) bool {
	return errors.HasCode(err, errors.ErrCodeTransientModel) ||
		errors.HasCode(err, errors.ErrCodeEmptyResponse) ||
		errors.HasCode(err, errors.ErrCodeUnparsableResponse)
}
