package llm

import (
	"context"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// LanguageModelAdapter exposes a single Provider and model name as a
// contracts.LanguageModel, so the Classifier and QuerySynthesizer never
// see the provider registry or wire-level request shape.
type LanguageModelAdapter struct {
	provider Provider
	model    string
}

// NewLanguageModelAdapter binds a provider and model into a LanguageModel.
func NewLanguageModelAdapter(provider Provider, model string) *LanguageModelAdapter {
	return &LanguageModelAdapter{provider: provider, model: model}
}

// Complete implements contracts.LanguageModel.
func (a *LanguageModelAdapter) Complete(ctx context.Context, prompt string, params contracts.CompletionParams) (contracts.CompletionResult, error) {
	req := &LLMRequest{
		ID:          uuid.New(),
		Model:       a.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		CreatedAt:   time.Now(),
	}

	start := time.Now()
	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return contracts.CompletionResult{}, contracts.NewErrorf(contracts.ErrUpstreamUnavail, "llm provider: %v", err)
	}

	return contracts.CompletionResult{
		Text:       resp.Content,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

var _ contracts.LanguageModel = (*LanguageModelAdapter)(nil)
