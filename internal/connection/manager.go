package connection

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

// cmdKind tags a connCmd so Manager's dispatch loop knows which Service
// method to invoke.
type cmdKind int

const (
	cmdEstablish cmdKind = iota
	cmdConnectSaved
	cmdListSaved
	cmdTest
	cmdClose
	cmdDeleteSaved
	cmdStatus
	cmdQuery
	cmdKindOf
)

type connCmd struct {
	kind cmdKind

	establish EstablishRequest

	connectionID uuid.UUID
	userID       uuid.UUID

	query   string
	maxRows int

	reply chan<- connResp
}

type connResp struct {
	connectionID uuid.UUID
	saved        []*SavedConnection
	status       Status
	dbKind       DatabaseKind
	rows         contracts.Rows
	err          error
}

// Manager is the ConnectionManager component: Service's business logic
// behind a single-threaded mailbox. Unlike AuthManager, handle runs
// synchronously on the loop's own goroutine — the in-memory LiveConnection
// map may only be mutated from this one goroutine.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[connCmd]
	logger *logging.Logger
}

// NewManager creates a Manager.
func NewManager(repo Repository, factory LiveConnectionFactory, cipher *PasswordCipher, vectorIndex, graphIndex IndexPurger, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("connection-manager")
	}
	return &Manager{
		svc:    NewService(repo, factory, cipher, vectorIndex, graphIndex),
		mbox:   actor.NewMailbox[connCmd](64),
		logger: logger,
	}
}

// Run drives the component's single-threaded dispatch loop until ctx is
// cancelled, then cascades a close across every remaining live connection.
// Call it in its own goroutine from the composition root.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd connCmd) {
		m.handle(ctx, cmd)
	})
	m.svc.Shutdown(m.warn)
}

func (m *Manager) warn(format string, args ...interface{}) {
	m.logger.Warn(format, args...)
}

func (m *Manager) handle(ctx context.Context, cmd connCmd) {
	switch cmd.kind {
	case cmdEstablish:
		id, err := m.svc.Establish(ctx, cmd.establish)
		cmd.reply <- connResp{connectionID: id, err: err}
	case cmdConnectSaved:
		err := m.svc.ConnectSaved(ctx, cmd.connectionID, cmd.userID)
		cmd.reply <- connResp{err: err}
	case cmdListSaved:
		list, err := m.svc.ListSaved(ctx, cmd.userID)
		cmd.reply <- connResp{saved: list, err: err}
	case cmdTest:
		err := m.svc.Test(ctx, cmd.establish)
		cmd.reply <- connResp{err: err}
	case cmdClose:
		err := m.svc.Close(ctx, cmd.connectionID, cmd.userID, m.warn)
		cmd.reply <- connResp{err: err}
	case cmdDeleteSaved:
		err := m.svc.DeleteSaved(ctx, cmd.connectionID, cmd.userID, m.warn)
		cmd.reply <- connResp{err: err}
	case cmdStatus:
		status, err := m.svc.Status(ctx, cmd.connectionID, cmd.userID)
		cmd.reply <- connResp{status: status, err: err}
	case cmdQuery:
		runner, err := m.svc.resolveQueryable(cmd.connectionID, cmd.userID)
		if err != nil {
			cmd.reply <- connResp{err: err}
			return
		}
		// The map lookup above is done on the loop goroutine; the blocking
		// driver call itself must not be, so it runs in its own goroutine.
		go func() {
			rows, err := runner.Query(ctx, cmd.query, cmd.maxRows)
			if err != nil {
				cmd.reply <- connResp{err: contracts.NewErrorf(contracts.ErrDriverError, "%v", err)}
				return
			}
			cmd.reply <- connResp{rows: rows}
		}()
	case cmdKindOf:
		kind, err := m.svc.Kind(ctx, cmd.connectionID, cmd.userID)
		cmd.reply <- connResp{dbKind: kind, err: err}
	}
}

// Establish asks the component to open and persist a new connection.
func (m *Manager) Establish(ctx context.Context, req EstablishRequest) (uuid.UUID, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdEstablish, establish: req, reply: reply}
	})
	if err != nil {
		return uuid.Nil, err
	}
	return resp.connectionID, resp.err
}

// ConnectSaved asks the component to open a live connection for an
// existing saved connection.
func (m *Manager) ConnectSaved(ctx context.Context, connectionID, userID uuid.UUID) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdConnectSaved, connectionID: connectionID, userID: userID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// ListSaved asks the component for every active saved connection owned by userID.
func (m *Manager) ListSaved(ctx context.Context, userID uuid.UUID) ([]*SavedConnection, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdListSaved, userID: userID, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.saved, resp.err
}

// Test asks the component to validate connection parameters without
// persisting anything.
func (m *Manager) Test(ctx context.Context, req EstablishRequest) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdTest, establish: req, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// Close asks the component to close a live connection and soft-delete its
// saved metadata.
func (m *Manager) Close(ctx context.Context, connectionID, userID uuid.UUID) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdClose, connectionID: connectionID, userID: userID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// DeleteSaved asks the component to close, soft-delete, hard-delete and
// cascade-purge a saved connection.
func (m *Manager) DeleteSaved(ctx context.Context, connectionID, userID uuid.UUID) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdDeleteSaved, connectionID: connectionID, userID: userID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// Query asks the component to run query against connectionID's live driver
// handle, owned by userID, bounding the result at maxRows.
func (m *Manager) Query(ctx context.Context, connectionID, userID uuid.UUID, query string, maxRows int) (contracts.Rows, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdQuery, connectionID: connectionID, userID: userID, query: query, maxRows: maxRows, reply: reply}
	})
	if err != nil {
		return contracts.Rows{}, err
	}
	return resp.rows, resp.err
}

// Kind asks the component for connectionID's DatabaseKind.
func (m *Manager) Kind(ctx context.Context, connectionID, userID uuid.UUID) (DatabaseKind, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdKindOf, connectionID: connectionID, userID: userID, reply: reply}
	})
	if err != nil {
		return "", err
	}
	return resp.dbKind, resp.err
}

// Status asks the component whether connectionID is currently live.
func (m *Manager) Status(ctx context.Context, connectionID, userID uuid.UUID) (Status, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- connResp) connCmd {
		return connCmd{kind: cmdStatus, connectionID: connectionID, userID: userID, reply: reply}
	})
	if err != nil {
		return "", err
	}
	return resp.status, resp.err
}
