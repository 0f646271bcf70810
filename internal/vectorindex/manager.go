package vectorindex

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

type cmdKind int

const (
	cmdUpsert cmdKind = iota
	cmdSearch
	cmdDeleteByConnection
)

type vecCmd struct {
	kind cmdKind

	point  contracts.VectorPoint
	query  []float32
	k      int
	filter contracts.VectorFilter

	connectionID string

	reply chan<- vecResp
}

type vecResp struct {
	results []contracts.VectorScored
	err     error
}

// Manager is the VectorIndex component: Service behind a single-threaded
// mailbox. handle runs synchronously on the loop's own goroutine rather
// than in a spawned goroutine per command (contrast AuthManager) — the
// spec requires writes to a given key be serialized by the component's
// single-loop model, which a fire-and-forget goroutine per command would
// not guarantee.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[vecCmd]
	logger *logging.Logger
}

// NewManager creates a Manager.
func NewManager(store contracts.VectorStore, dimension int, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("vector-index-manager")
	}
	return &Manager{
		svc:    NewService(store, dimension),
		mbox:   actor.NewMailbox[vecCmd](64),
		logger: logger,
	}
}

// Run drives the component's single-threaded dispatch loop until ctx is
// cancelled. Call it in its own goroutine from the composition root.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd vecCmd) {
		m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd vecCmd) {
	switch cmd.kind {
	case cmdUpsert:
		err := m.svc.Upsert(ctx, cmd.point)
		cmd.reply <- vecResp{err: err}
	case cmdSearch:
		results, err := m.svc.Search(ctx, cmd.query, cmd.k, cmd.filter)
		cmd.reply <- vecResp{results: results, err: err}
	case cmdDeleteByConnection:
		err := m.svc.DeleteByConnection(ctx, cmd.connectionID)
		cmd.reply <- vecResp{err: err}
	}
}

// Upsert asks the component to store one point.
func (m *Manager) Upsert(ctx context.Context, point contracts.VectorPoint) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- vecResp) vecCmd {
		return vecCmd{kind: cmdUpsert, point: point, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// Search asks the component for the top-k matches under filter.
func (m *Manager) Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- vecResp) vecCmd {
		return vecCmd{kind: cmdSearch, query: query, k: k, filter: filter, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.results, resp.err
}

// DeleteByConnection asks the component to purge every point tagged with connectionID.
func (m *Manager) DeleteByConnection(ctx context.Context, connectionID string) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- vecResp) vecCmd {
		return vecCmd{kind: cmdDeleteByConnection, connectionID: connectionID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// PurgeConnection satisfies connection.IndexPurger by structural typing.
func (m *Manager) PurgeConnection(ctx context.Context, connectionID uuid.UUID) error {
	return m.DeleteByConnection(ctx, connectionID.String())
}
