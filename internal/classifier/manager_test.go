package classifier

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
	mgr := NewManager(NewService(model), logging.NewTestLogger("classifier-manager-test"))

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

func TestManager_RequiresQueryGeneration(t *testing.T) {
	model := &fakeModel{responses: []contracts.CompletionResult{{Text: "QUERY"}}}
	mgr, ctx := newTestManager(t, model)

	assert.True(t, mgr.RequiresQueryGeneration(ctx, "list payments above 20"))
}

func TestManager_RespondGeneral(t *testing.T) {
	model := &fakeModel{responses: []contracts.CompletionResult{{Text: "hi!"}}}
	mgr, ctx := newTestManager(t, model)

	reply, err := mgr.RespondGeneral(ctx, "hello", "user-1", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "hi!", reply)
}
