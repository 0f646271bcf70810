package orchestrator

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
)

type turnCmd struct {
	turn  *contracts.ConversationTurn
	reply chan<- struct{}
}

// Manager is the Orchestrator component: Service's business logic behind
// a single-threaded mailbox. Every call delegates to independent
// collaborators that serialize their own state, so Run spawns one
// goroutine per command rather than serializing turns on the loop
// goroutine, the same dispatch Classifier and QuerySynthesizer use.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[turnCmd]
	logger *logging.Logger
}

// NewManager wires a Manager over the given Service.
func NewManager(svc *Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("orchestrator-manager")
	}
	return &Manager{svc: svc, mbox: actor.NewMailbox[turnCmd](64), logger: logger}
}

// Run drives the dispatch loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd turnCmd) {
		go m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd turnCmd) {
	m.svc.HandleTurn(ctx, cmd.turn)
	if cmd.turn.Error != nil {
		m.logger.Warn("turn %s failed: %s", cmd.turn.RequestID, cmd.turn.Error.Kind)
	}
	cmd.reply <- struct{}{}
}

// HandleTurn asks the component to drive turn through the pipeline,
// mutating it in place. The returned error reports only a mailbox-level
// failure (e.g. the caller's own deadline passing before the command
// could even be accepted); pipeline failures are recorded on turn.Error.
func (m *Manager) HandleTurn(ctx context.Context, turn *contracts.ConversationTurn) error {
	_, err := actor.Ask(ctx, m.mbox, func(reply chan<- struct{}) turnCmd {
		return turnCmd{turn: turn, reply: reply}
	})
	return err
}
