package synthesizer

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
)

type synthesizeCmd struct {
	userText      string
	kind          contracts.DatabaseKind
	contextTables []contracts.ContextTable
	userID        string
	sessionID     string
	reply         chan<- synthesizeResp
}

type synthesizeResp struct {
	query       string
	explanation string
	err         error
}

// Manager is the QuerySynthesizer component: Service's business logic
// behind a single-threaded mailbox. Every call is an independent,
// stateless LLM round trip, so Run spawns one goroutine per command, as
// Classifier and SchemaIngestor do.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[synthesizeCmd]
	logger *logging.Logger
}

// NewManager wires a Manager over the given Service.
func NewManager(svc *Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("query-synthesizer-manager")
	}
	return &Manager{svc: svc, mbox: actor.NewMailbox[synthesizeCmd](64), logger: logger}
}

// Run drives the dispatch loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd synthesizeCmd) {
		go m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd synthesizeCmd) {
	query, explanation, err := m.svc.Synthesize(ctx, cmd.userText, cmd.kind, cmd.contextTables, cmd.userID, cmd.sessionID)
	if err != nil {
		m.logger.Warn("synthesis failed for session %s: %v", cmd.sessionID, err)
	}
	cmd.reply <- synthesizeResp{query: query, explanation: explanation, err: err}
}

// Synthesize asks the component to produce {query, explanation}.
func (m *Manager) Synthesize(ctx context.Context, userText string, kind contracts.DatabaseKind, contextTables []contracts.ContextTable, userID, sessionID string) (string, string, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- synthesizeResp) synthesizeCmd {
		return synthesizeCmd{userText: userText, kind: kind, contextTables: contextTables, userID: userID, sessionID: sessionID, reply: reply}
	})
	if err != nil {
		return "", "", err
	}
	return resp.query, resp.explanation, resp.err
}
