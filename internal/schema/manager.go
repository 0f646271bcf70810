package schema

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

type ingestCmd struct {
	connectionID uuid.UUID
	userID       uuid.UUID
	kind         connection.DatabaseKind
	reply        chan<- ingestResp
}

type ingestResp struct {
	result IngestResult
	err    error
}

// Manager is the SchemaIngestor component: Service's business logic behind
// a single-threaded mailbox. Unlike ConnectionManager, VectorIndex, and
// GraphIndex, this component holds no shared keyed state across calls, so
// Run dispatches each command onto its own goroutine rather than handling
// it on the mailbox's own loop goroutine; one slow introspection run never
// blocks another connection's.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[ingestCmd]
	logger *logging.Logger
}

// NewManager wires a Manager over svc.
func NewManager(svc *Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("schema-ingestor-manager")
	}
	return &Manager{
		svc:    svc,
		mbox:   actor.NewMailbox[ingestCmd](64),
		logger: logger,
	}
}

// Run drives the dispatch loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd ingestCmd) {
		go m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd ingestCmd) {
	result, err := m.svc.Ingest(ctx, cmd.connectionID, cmd.userID, cmd.kind)
	if err != nil {
		m.logger.Warn("schema ingestion failed for connection %s: %v", cmd.connectionID, err)
	} else {
		m.logger.Info("schema ingestion for connection %s: %d tables analyzed, %d embeddings, %d skipped",
			cmd.connectionID, result.TablesAnalyzed, result.EmbeddingsGenerated, len(result.SkippedTables))
	}
	cmd.reply <- ingestResp{result: result, err: err}
}

// Ingest asks the component to walk connectionID's schema and index it.
func (m *Manager) Ingest(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) (IngestResult, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- ingestResp) ingestCmd {
		return ingestCmd{connectionID: connectionID, userID: userID, kind: kind, reply: reply}
	})
	if err != nil {
		return IngestResult{}, err
	}
	return resp.result, resp.err
}
