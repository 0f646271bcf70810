package graphindex

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

type cmdKind int

const (
	cmdStoreRelationships cmdKind = iota
	cmdFindPaths
	cmdRelatedTables
	cmdAnalyzeDependencies
	cmdDeleteByConnection
)

type graphCmd struct {
	kind cmdKind

	connectionID uuid.UUID
	userID       uuid.UUID
	relKind      contracts.RelationshipKind
	edges        []EdgeInput

	source, target, table string
	maxDepth              int

	tables []string

	reply chan<- graphResp
}

type graphResp struct {
	paths        []contracts.GraphPath
	related      []contracts.TableDistance
	dependencies map[string][]string
	counts       map[string]int
	err          error
}

// Manager is the GraphIndex component: Service behind a single-threaded
// mailbox. Like vectorindex.Manager, handle runs synchronously on the
// loop's own goroutine so writes to a given connectionID's edge set are
// serialized by the loop itself.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[graphCmd]
	logger *logging.Logger
}

// NewManager creates a Manager.
func NewManager(store contracts.GraphStore, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("graph-index-manager")
	}
	return &Manager{
		svc:    NewService(store),
		mbox:   actor.NewMailbox[graphCmd](64),
		logger: logger,
	}
}

// Run drives the component's single-threaded dispatch loop until ctx is
// cancelled. Call it in its own goroutine from the composition root.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd graphCmd) {
		m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd graphCmd) {
	switch cmd.kind {
	case cmdStoreRelationships:
		err := m.svc.StoreRelationships(ctx, cmd.connectionID, cmd.userID, cmd.relKind, cmd.edges)
		cmd.reply <- graphResp{err: err}
	case cmdFindPaths:
		paths, err := m.svc.FindPaths(ctx, cmd.connectionID, cmd.source, cmd.target, cmd.maxDepth)
		cmd.reply <- graphResp{paths: paths, err: err}
	case cmdRelatedTables:
		related, err := m.svc.RelatedTables(ctx, cmd.connectionID, cmd.table, cmd.maxDepth)
		cmd.reply <- graphResp{related: related, err: err}
	case cmdAnalyzeDependencies:
		deps, counts, err := m.svc.AnalyzeDependencies(ctx, cmd.connectionID, cmd.tables)
		cmd.reply <- graphResp{dependencies: deps, counts: counts, err: err}
	case cmdDeleteByConnection:
		err := m.svc.DeleteByConnection(ctx, cmd.connectionID)
		cmd.reply <- graphResp{err: err}
	}
}

// StoreRelationships asks the component to replace connectionID's edge set.
func (m *Manager) StoreRelationships(ctx context.Context, connectionID, userID uuid.UUID, kind contracts.RelationshipKind, edges []EdgeInput) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- graphResp) graphCmd {
		return graphCmd{kind: cmdStoreRelationships, connectionID: connectionID, userID: userID, relKind: kind, edges: edges, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// FindPaths asks the component for every shortest path from source to target.
func (m *Manager) FindPaths(ctx context.Context, connectionID uuid.UUID, source, target string, maxDepth int) ([]contracts.GraphPath, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- graphResp) graphCmd {
		return graphCmd{kind: cmdFindPaths, connectionID: connectionID, source: source, target: target, maxDepth: maxDepth, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.paths, resp.err
}

// RelatedTables asks the component for every table within maxDepth hops of table.
func (m *Manager) RelatedTables(ctx context.Context, connectionID uuid.UUID, table string, maxDepth int) ([]contracts.TableDistance, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- graphResp) graphCmd {
		return graphCmd{kind: cmdRelatedTables, connectionID: connectionID, table: table, maxDepth: maxDepth, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.related, resp.err
}

// AnalyzeDependencies asks the component for each table's direct
// dependencies and in-degree.
func (m *Manager) AnalyzeDependencies(ctx context.Context, connectionID uuid.UUID, tables []string) (map[string][]string, map[string]int, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- graphResp) graphCmd {
		return graphCmd{kind: cmdAnalyzeDependencies, connectionID: connectionID, tables: tables, reply: reply}
	})
	if err != nil {
		return nil, nil, err
	}
	return resp.dependencies, resp.counts, resp.err
}

// DeleteByConnection asks the component to purge every edge keyed by connectionID.
func (m *Manager) DeleteByConnection(ctx context.Context, connectionID uuid.UUID) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- graphResp) graphCmd {
		return graphCmd{kind: cmdDeleteByConnection, connectionID: connectionID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// PurgeConnection satisfies connection.IndexPurger by structural typing.
func (m *Manager) PurgeConnection(ctx context.Context, connectionID uuid.UUID) error {
	return m.DeleteByConnection(ctx, connectionID)
}
