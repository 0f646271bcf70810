// Package classifier implements the Classifier component: a thin
// prompt-driven layer over a contracts.LanguageModel that decides whether
// a user turn needs database query generation, and produces a plain
// conversational reply for turns that don't.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

const (
	defaultCallTimeout = 8 * time.Second
	defaultMaxTokens   = 512
)

const classifyPrompt = `You decide whether a user's message to a database assistant requires generating and running a database query, or whether it is general conversation.

Reply with exactly one word: QUERY or GENERAL.

User message: %s`

const generalReplyPrompt = `You are a helpful assistant for a natural-language database exploration tool. The user sent a message that does not require running a database query. Reply conversationally and briefly.

User message: %s`

// Service implements Classifier's two operations over a single
// contracts.LanguageModel collaborator.
type Service struct {
	model       contracts.LanguageModel
	callTimeout time.Duration
}

// NewService binds the language model collaborator.
func NewService(model contracts.LanguageModel) *Service {
	return &Service{model: model, callTimeout: defaultCallTimeout}
}

// RequiresQueryGeneration classifies text as needing query generation.
// Any failure — including an exhausted retry — fails closed to false,
// since a false negative only costs a general reply while a false
// positive would risk synthesizing and running an unwanted query.
func (s *Service) RequiresQueryGeneration(ctx context.Context, text string) bool {
	result, err := s.completeWithRetry(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		return false
	}
	return parseVerdict(result.Text)
}

// RespondGeneral produces a conversational reply for a non-query turn.
// userID and sessionID are accepted for call-shape parity with the other
// per-turn operations; this implementation does not use them.
func (s *Service) RespondGeneral(ctx context.Context, text, userID, sessionID string) (string, error) {
	result, err := s.completeWithRetry(ctx, fmt.Sprintf(generalReplyPrompt, text))
	if err != nil {
		return "", contracts.NewErrorf(contracts.ErrUpstreamUnavail, "classifier: general reply: %v", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// completeWithRetry calls the language model once, retrying exactly once
// if the first attempt fails with UpstreamUnavailable, per the retry
// policy every transport-facing orchestration component follows.
func (s *Service) completeWithRetry(ctx context.Context, prompt string) (contracts.CompletionResult, error) {
	result, err := s.complete(ctx, prompt)
	if err == nil {
		return result, nil
	}
	if contracts.AsError(err).Kind != contracts.ErrUpstreamUnavail {
		return contracts.CompletionResult{}, err
	}
	return s.complete(ctx, prompt)
}

func (s *Service) complete(ctx context.Context, prompt string) (contracts.CompletionResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.model.Complete(callCtx, prompt, contracts.CompletionParams{MaxTokens: defaultMaxTokens, Temperature: 0})
	if err != nil {
		return contracts.CompletionResult{}, contracts.AsError(err)
	}
	return result, nil
}

// parseVerdict reads the model's one-word verdict, defaulting to false
// (GENERAL) for anything that doesn't clearly say QUERY.
func parseVerdict(text string) bool {
	return strings.Contains(strings.ToUpper(text), "QUERY")
}
