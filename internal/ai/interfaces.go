package ai

import (
	"context"
)

// Provider is the model invocation boundary for the analysis pipeline.
// Generate performs a single blocking call and returns the raw response text;
// retry orchestration lives in the Pipeline, not the provider.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
