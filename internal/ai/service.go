package ai

import (
	"context"
	"fmt"

	"smartats/internal/config"
	"smartats/internal/errors"
	"smartats/internal/types"
)

// Service bundles the provider and pipeline for the analyze operation
type Service struct {
	Provider Provider // Exported for access from server package
	Pipeline *Pipeline
	config   *config.AIConfig
	logger   *errors.Logger
}

// NewService creates a new AI service instance from configuration
func NewService(cfg *config.AIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_attempts", cfg.MaxAttempts)

	var provider Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider: provider,
		Pipeline: NewPipeline(provider, cfg.MaxAttempts, logger),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Analyze runs the analysis pipeline once
func (s *Service) Analyze(ctx context.Context, input types.AnalysisInput) (types.Outcome, error) {
	return s.Pipeline.Analyze(ctx, input)
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases provider resources
func (s *Service) Close() error {
	return s.Provider.Close()
}
