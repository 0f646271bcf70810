package executor

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
)

type cmdKind int

const (
	cmdExecute cmdKind = iota
	cmdValidate
)

type executeCmd struct {
	kind         cmdKind
	query        string
	connectionID string
	userID       string
	maxRows      int
	reply        chan<- executeResp
}

type executeResp struct {
	result contracts.QueryResult
	err    error
}

// Manager is the QueryExecutor component: Service's business logic behind
// a single-threaded mailbox. Every call delegates its blocking work to
// ConnectionManager, which serializes its own state, so Run spawns one
// goroutine per command rather than serializing calls here.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[executeCmd]
	logger *logging.Logger
}

// NewManager wires a Manager over the given Service.
func NewManager(svc *Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("query-executor-manager")
	}
	return &Manager{svc: svc, mbox: actor.NewMailbox[executeCmd](64), logger: logger}
}

// Run drives the dispatch loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd executeCmd) {
		go m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd executeCmd) {
	switch cmd.kind {
	case cmdValidate:
		err := m.svc.Validate(cmd.query)
		cmd.reply <- executeResp{err: err}
	case cmdExecute:
		result, err := m.svc.Execute(ctx, cmd.query, cmd.connectionID, cmd.userID, cmd.maxRows)
		if err != nil {
			m.logger.Warn("execute failed for connection %s: %v", cmd.connectionID, err)
		}
		cmd.reply <- executeResp{result: result, err: err}
	}
}

// Validate asks the component whether query passes the safety policy.
func (m *Manager) Validate(ctx context.Context, query string) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- executeResp) executeCmd {
		return executeCmd{kind: cmdValidate, query: query, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// Execute asks the component to validate and run query against
// connectionID, bounding the result at maxRows.
func (m *Manager) Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.QueryResult, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- executeResp) executeCmd {
		return executeCmd{kind: cmdExecute, query: query, connectionID: connectionID, userID: userID, maxRows: maxRows, reply: reply}
	})
	if err != nil {
		return contracts.QueryResult{}, err
	}
	return resp.result, resp.err
}
