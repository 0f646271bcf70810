package auth

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/actor"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

// cmdKind tags an authCmd so Manager's dispatch loop knows which Service
// method to invoke; the command/response pair is a single Go struct rather
// than one type per operation, kept deliberately small since every
// operation's payload differs only in a couple of fields.
type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdLogin
	cmdValidateSession
	cmdExtendSession
	cmdRevokeSession
	cmdChangePassword
	cmdValidateAccess
)

type authCmd struct {
	kind cmdKind

	username string
	email    string
	password string

	userAgent string
	ip        string

	sessionID uuid.UUID
	extendBy  time.Duration

	userID       uuid.UUID
	currentPass  string
	requiredRole Role

	reply chan<- authResp
}

type authResp struct {
	user    *User
	session *Session
	granted bool
	err     error
}

// Manager is the AuthManager component: Service's business logic behind a
// single-threaded mailbox, with a Redis session cache and a periodic
// expiry sweep.
type Manager struct {
	svc    *Service
	mbox   *actor.Mailbox[authCmd]
	logger *logging.Logger

	sweepInterval time.Duration

	registerCount    int64
	loginCount       int64
	loginFailures    int64
	sessionsExpired  int64
}

// NewManager creates a Manager. cache may be nil to disable session caching.
func NewManager(config Config, repo Repository, cache sessionCacheClient, cacheTTL time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLoggerWithName("auth-manager")
	}
	return &Manager{
		svc:           NewService(config, newCachedRepository(repo, cache, cacheTTL)),
		mbox:          actor.NewMailbox[authCmd](64),
		logger:        logger,
		sweepInterval: 5 * time.Minute,
	}
}

// Run drives the component's dispatch loop and its expiry sweep ticker
// until ctx is cancelled. Call it in its own goroutine from the
// composition root.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	go actor.Run(ctx, m.mbox, func(cmd authCmd) {
		go m.handle(ctx, cmd)
	})

	for {
		select {
		case <-ticker.C:
			m.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	n, err := m.svc.SweepExpiredSessions(ctx)
	if err != nil {
		m.logger.Warn("session expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		atomic.AddInt64(&m.sessionsExpired, n)
		m.logger.Info("session expiry sweep removed %d sessions", n)
	}
}

func (m *Manager) handle(ctx context.Context, cmd authCmd) {
	switch cmd.kind {
	case cmdRegister:
		user, err := m.svc.Register(ctx, cmd.username, cmd.email, cmd.password)
		if err == nil {
			atomic.AddInt64(&m.registerCount, 1)
		}
		cmd.reply <- authResp{user: user, err: err}
	case cmdLogin:
		user, session, err := m.svc.Login(ctx, cmd.username, cmd.password, cmd.userAgent, cmd.ip)
		atomic.AddInt64(&m.loginCount, 1)
		if err != nil {
			atomic.AddInt64(&m.loginFailures, 1)
		}
		cmd.reply <- authResp{user: user, session: session, err: err}
	case cmdValidateSession:
		session, err := m.svc.ValidateSession(ctx, cmd.sessionID)
		cmd.reply <- authResp{session: session, err: err}
	case cmdExtendSession:
		session, err := m.svc.ExtendSession(ctx, cmd.sessionID, cmd.extendBy)
		cmd.reply <- authResp{session: session, err: err}
	case cmdRevokeSession:
		err := m.svc.RevokeSession(ctx, cmd.sessionID)
		cmd.reply <- authResp{err: err}
	case cmdChangePassword:
		err := m.svc.ChangePassword(ctx, cmd.userID, cmd.currentPass, cmd.password)
		cmd.reply <- authResp{err: err}
	case cmdValidateAccess:
		granted, err := m.svc.ValidateAccess(ctx, cmd.userID, cmd.requiredRole)
		cmd.reply <- authResp{granted: granted, err: err}
	}
}

// Bootstrap creates the default admin account if none exists. Called once
// from the composition root before Run starts accepting traffic.
func (m *Manager) Bootstrap(ctx context.Context, username, email, password string) error {
	return m.svc.Bootstrap(ctx, username, email, password)
}

// GenerateJWT issues a signed token for user, delegating to Service.
func (m *Manager) GenerateJWT(user *User) (string, error) {
	return m.svc.GenerateJWT(user)
}

// VerifyJWT validates a token and returns the carried user id.
func (m *Manager) VerifyJWT(token string) (uuid.UUID, error) {
	return m.svc.VerifyJWT(token)
}

// Register asks the component to create a new user account.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*User, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdRegister, username: username, email: email, password: password, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.user, resp.err
}

// Login asks the component to authenticate a user and issue a session.
func (m *Manager) Login(ctx context.Context, usernameOrEmail, password, userAgent, ip string) (*User, *Session, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdLogin, username: usernameOrEmail, password: password, userAgent: userAgent, ip: ip, reply: reply}
	})
	if err != nil {
		return nil, nil, err
	}
	return resp.user, resp.session, resp.err
}

// ValidateSession asks the component to check a session's validity.
func (m *Manager) ValidateSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdValidateSession, sessionID: sessionID, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.session, resp.err
}

// ExtendSession asks the component to set a session's expiry to now plus
// extendBy.
func (m *Manager) ExtendSession(ctx context.Context, sessionID uuid.UUID, extendBy time.Duration) (*Session, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdExtendSession, sessionID: sessionID, extendBy: extendBy, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return resp.session, resp.err
}

// RevokeSession asks the component to revoke a session.
func (m *Manager) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdRevokeSession, sessionID: sessionID, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// Logout is an alias for RevokeSession.
func (m *Manager) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return m.RevokeSession(ctx, sessionID)
}

// ChangePassword asks the component to update a user's password.
func (m *Manager) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdChangePassword, userID: userID, currentPass: current, password: next, reply: reply}
	})
	if err != nil {
		return err
	}
	return resp.err
}

// ValidateAccess asks the component whether userID's role satisfies requiredRole.
func (m *Manager) ValidateAccess(ctx context.Context, userID uuid.UUID, requiredRole Role) (bool, error) {
	resp, err := actor.Ask(ctx, m.mbox, func(reply chan<- authResp) authCmd {
		return authCmd{kind: cmdValidateAccess, userID: userID, requiredRole: requiredRole, reply: reply}
	})
	if err != nil {
		return false, err
	}
	return resp.granted, resp.err
}

// Stats reports operational counters for observability.
type Stats struct {
	Registrations   int64
	Logins          int64
	LoginFailures   int64
	SessionsExpired int64
}

// Stats returns a snapshot of the component's operation counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Registrations:   atomic.LoadInt64(&m.registerCount),
		Logins:          atomic.LoadInt64(&m.loginCount),
		LoginFailures:   atomic.LoadInt64(&m.loginFailures),
		SessionsExpired: atomic.LoadInt64(&m.sessionsExpired),
	}
}
