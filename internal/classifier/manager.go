package classifier

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
)

type cmdKind int

const (
	cmdRequiresQueryGeneration cmdKind = iota
	cmdRespondGeneral
)

type classifyCmd struct {
	kind      cmdKind
	text      string
	userID    string
	sessionID string
	reply     chan<- classifyResp
}

type classifyResp struct {
	requiresQuery bool
	reply         string
	err           error
}

// Manager is the Classifier component: Service's business logic behind a
// single-threaded mailbox. Every call is an independent, stateless LLM
// round trip, so Run spawns one goroutine per command, the same dispatch
// AuthManager uses, rather than serializing calls on the loop goroutine.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[classifyCmd]
	logger *logging.Logger
}

// NewManager wires a Manager over the given LanguageModel collaborator.
func NewManager(svc *Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("classifier-manager")
	}
	return &Manager{svc: svc, mbox: actor.NewMailbox[classifyCmd](64), logger: logger}
}

// Run drives the dispatch loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	actor.Run(ctx, m.mbox, func(cmd classifyCmd) {
		go m.handle(ctx, cmd)
	})
}

func (m *Manager) handle(ctx context.Context, cmd classifyCmd) {
	switch cmd.kind {
	case cmdRequiresQueryGeneration:
		cmd.reply <- classifyResp{requiresQuery: m.svc.RequiresQueryGeneration(ctx, cmd.text)}
	case cmdRespondGeneral:
		text, err := m.svc.RespondGeneral(ctx, cmd.text, cmd.userID, cmd.sessionID)
		if err != nil {
			m.logger.Warn("general reply failed: %v", err)
		}
		cmd.reply <- classifyResp{reply: text, err: err}
	}
}

// RequiresQueryGeneration asks the component whether text has query intent.
func (m *Manager) RequiresQueryGeneration(ctx context.Context, text string) bool {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- classifyResp) classifyCmd {
		return classifyCmd{kind: cmdRequiresQueryGeneration, text: text, reply: reply}
	})
	if err != nil {
		return false
	}
	return resp.requiresQuery
}

// RespondGeneral asks the component for a conversational reply.
func (m *Manager) RespondGeneral(ctx context.Context, text, userID, sessionID string) (string, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- classifyResp) classifyCmd {
		return classifyCmd{kind: cmdRespondGeneral, text: text, userID: userID, sessionID: sessionID, reply: reply}
	})
	if err != nil {
		return "", err
	}
	return resp.reply, resp.err
}
