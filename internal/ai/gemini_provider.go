package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"smartats/internal/config"
	smartatsErrors "smartats/internal/errors"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.AIConfig
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *smartatsErrors.Logger
}

// Ensure GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(cfg *config.AIConfig, logger *smartatsErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, smartatsErrors.NewAIError(smartatsErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(cfg.CircuitBreaker, logger),
		modelBreaker:   NewModelCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

// Generate performs one blocking content generation call. Failures are
// classified so the pipeline can decide what to retry: network, quota and 5xx
// errors surface as TRANSIENT_MODEL_ERROR, an empty reply as EMPTY_RESPONSE,
// everything else as AI_SERVICE_FAILED.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("smartats.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.Int("ai.prompt_length", len(prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(callCtx, g.config.Model,
			genai.Text(prompt), g.buildGenerateConfig())
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, g.classifyError(err)
	}

	text := result.Text()
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, smartatsErrors.NewAIError(smartatsErrors.ErrCodeEmptyResponse,
			"Model returned no text", nil)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return text, tokenUsage, nil
}

// buildGenerateConfig builds the fixed generation configuration. Low
// temperature and constrained sampling keep the output terse and close to the
// requested JSON shape; the normalizer handles the rest.
func (g *GeminiProvider) buildGenerateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.config.MaxOutputTokens,
	}
	if g.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(g.config.Temperature)
	}
	if g.config.TopP > 0 {
		cfg.TopP = genai.Ptr(g.config.TopP)
	}
	if g.config.TopK > 0 {
		cfg.TopK = genai.Ptr(g.config.TopK)
	}
	return cfg
}

// classifyError maps upstream failures into the pipeline error taxonomy
func (g *GeminiProvider) classifyError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Open breaker fails fast; the pipeline's backoff gives it time to
		// transition to half-open
		return smartatsErrors.NewAIError(smartatsErrors.ErrCodeTransientModel,
			"AI service circuit breaker is open", err)
	}

	if isRetryableError(err) {
		return smartatsErrors.NewNetworkError(smartatsErrors.ErrCodeTransientModel,
			"Transient AI service failure", err)
	}

	return smartatsErrors.NewAIError(smartatsErrors.ErrCodeAIServiceFailed,
		"Failed to generate content", err)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors: timeouts, connection refused and friends
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Google API errors by HTTP status code
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}
	stats["overall_healthy"] = g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()
	return stats
}

// Close implements Provider
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
