// Package synthesizer implements the QuerySynthesizer component: it turns
// a natural-language question plus a bounded set of context tables into a
// single query string in the target database's dialect, never executing
// it itself.
package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

const (
	defaultCallTimeout = 8 * time.Second
	defaultMaxTokens   = 1024
)

const synthesisPrompt = `You translate a user's question into a single database query.

Target dialect: %s

Tables you may reference (do not invent table or column names outside this list unless it is empty, in which case you may produce a schema-discovery query such as listing tables):
%s

User question: %s

Respond in exactly this format, nothing else:
QUERY: <the query, on one or more lines>
EXPLANATION: <one or two sentences explaining what the query does>`

// Service implements Synthesize over a single contracts.LanguageModel
// collaborator.
type Service struct {
	model       contracts.LanguageModel
	callTimeout time.Duration
}

// NewService binds the language model collaborator.
func NewService(model contracts.LanguageModel) *Service {
	return &Service{model: model, callTimeout: defaultCallTimeout}
}

// Synthesize produces {query, explanation} for userText against kind's
// dialect, grounded in contextTables. Both outputs are non-empty on
// success; failure is always reported as SynthesisFailed.
func (s *Service) Synthesize(ctx context.Context, userText string, kind contracts.DatabaseKind, contextTables []contracts.ContextTable, userID, sessionID string) (query string, explanation string, err error) {
	prompt := fmt.Sprintf(synthesisPrompt, dialectName(kind), formatContextTables(contextTables), userText)

	result, callErr := s.completeWithRetry(ctx, prompt)
	if callErr != nil {
		return "", "", contracts.NewErrorf(contracts.ErrSynthesisFailed, "query synthesis: %v", callErr)
	}

	query, explanation, ok := parseSynthesis(result.Text)
	if !ok {
		return "", "", contracts.NewError(contracts.ErrSynthesisFailed, "model response did not contain both a query and an explanation")
	}
	if err := validateReferences(query, contextTables); err != nil {
		return "", "", contracts.NewErrorf(contracts.ErrSynthesisFailed, "%v", err)
	}
	return query, explanation, nil
}

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

func dialectName(kind contracts.DatabaseKind) string {
	switch kind {
	case contracts.Postgres:
		return "PostgreSQL SQL"
	case contracts.MySQL:
		return "MySQL SQL"
	case contracts.Mongo:
		return "MongoDB query, expressed as a JSON command: {\"collection\": \"...\", \"filter\": {...}}"
	default:
		return string(kind)
	}
}

// formatContextTables renders the ordered context list the same way on
// every call, so the same context always produces the same prompt text.
func formatContextTables(tables []contracts.ContextTable) string {
	if len(tables) == 0 {
		return "(none — the schema has not been indexed yet)"
	}

	var b strings.Builder
	for _, t := range tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Type))
		}
		fmt.Fprintf(&b, "- %s: %s", t.Name, strings.Join(cols, ", "))
		if len(t.Relationships) > 0 {
			rels := make([]string, 0, len(t.Relationships))
			for _, r := range t.Relationships {
				rels = append(rels, fmt.Sprintf("%s.%s -> %s.%s", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn))
			}
			fmt.Fprintf(&b, "; relationships: %s", strings.Join(rels, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseSynthesis splits a model response on its QUERY:/EXPLANATION:
// markers. ok is false unless both sections are present and non-empty.
func parseSynthesis(text string) (query, explanation string, ok bool) {
	queryIdx := strings.Index(text, "QUERY:")
	explanationIdx := strings.Index(text, "EXPLANATION:")
	if queryIdx == -1 || explanationIdx == -1 || explanationIdx < queryIdx {
		return "", "", false
	}

	query = strings.TrimSpace(text[queryIdx+len("QUERY:") : explanationIdx])
	explanation = strings.TrimSpace(text[explanationIdx+len("EXPLANATION:"):])
	if query == "" || explanation == "" {
		return "", "", false
	}
	return query, explanation, true
}

// validateReferences enforces the prompt contract defensively: when
// contextTables is non-empty, the synthesized query must mention at least
// one of the table names it was given, so an ungrounded response is
// caught here rather than only relying on the model's own discipline.
func validateReferences(query string, contextTables []contracts.ContextTable) error {
	if len(contextTables) == 0 {
		return nil
	}
	lowerQuery := strings.ToLower(query)
	for _, t := range contextTables {
		if strings.Contains(lowerQuery, strings.ToLower(t.Name)) {
			return nil
		}
	}
	return fmt.Errorf("synthesized query does not reference any table from context")
}
