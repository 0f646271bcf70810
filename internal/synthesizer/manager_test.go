package synthesizer

import (
	"context"
	"testing"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, model contracts.LanguageModel) (*Manager, context.Context) {
	t.Helper()
	mgr := NewManager(NewService(model), logging.NewTestLogger("query-synthesizer-manager-test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return mgr, ctx
}

func TestManager_Synthesize(t *testing.T) {
	model := &fakeModel{responses: []contracts.CompletionResult{{
		Text: "QUERY: SELECT * FROM payment\nEXPLANATION: Lists all payments.",
	}}}
	mgr, ctx := newTestManager(t, model)

	query, explanation, err := mgr.Synthesize(ctx, "list payments", contracts.Postgres, paymentContext(), "user-1", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM payment", query)
	assert.Equal(t, "Lists all payments.", explanation)
}
