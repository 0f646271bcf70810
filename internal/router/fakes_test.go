package router

import (
	"context"
	"fmt"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/auth"
	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/schema"
	"github.com/google/uuid"
)

type fakeAuth struct {
	user       *auth.User
	session    *auth.Session
	err        error
	logoutErr  error
	changeErr  error
	registered *auth.User

	jwtErr     error
	verifyUser uuid.UUID
	verifyErr  error
}

func (f *fakeAuth) Register(ctx context.Context, username, email, password string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.registered, nil
}

func (f *fakeAuth) Login(ctx context.Context, usernameOrEmail, password, userAgent, ip string) (*auth.User, *auth.Session, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, f.session, nil
}

func (f *fakeAuth) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return f.logoutErr
}

func (f *fakeAuth) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return f.changeErr
}

func (f *fakeAuth) GenerateJWT(user *auth.User) (string, error) {
	if f.jwtErr != nil {
		return "", f.jwtErr
	}
	return fmt.Sprintf("fake-jwt-%s", user.ID), nil
}

func (f *fakeAuth) VerifyJWT(token string) (uuid.UUID, error) {
	if f.verifyErr != nil {
		return uuid.Nil, f.verifyErr
	}
	return f.verifyUser, nil
}

type fakeConnections struct {
	connectionID uuid.UUID
	establishErr error
	connectErr   error
	saved        []*connection.SavedConnection
	listErr      error
	testErr      error
	closeErr     error
	deleteErr    error
	status       connection.Status
	statusErr    error
	kind         connection.DatabaseKind
	kindErr      error
}

func (f *fakeConnections) Establish(ctx context.Context, req connection.EstablishRequest) (uuid.UUID, error) {
	return f.connectionID, f.establishErr
}

func (f *fakeConnections) ConnectSaved(ctx context.Context, connectionID, userID uuid.UUID) error {
	return f.connectErr
}

func (f *fakeConnections) ListSaved(ctx context.Context, userID uuid.UUID) ([]*connection.SavedConnection, error) {
	return f.saved, f.listErr
}

func (f *fakeConnections) Test(ctx context.Context, req connection.EstablishRequest) error {
	return f.testErr
}

func (f *fakeConnections) Close(ctx context.Context, connectionID, userID uuid.UUID) error {
	return f.closeErr
}

func (f *fakeConnections) DeleteSaved(ctx context.Context, connectionID, userID uuid.UUID) error {
	return f.deleteErr
}

func (f *fakeConnections) Status(ctx context.Context, connectionID, userID uuid.UUID) (connection.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeConnections) Kind(ctx context.Context, connectionID, userID uuid.UUID) (connection.DatabaseKind, error) {
	return f.kind, f.kindErr
}

type fakeSchema struct {
	calls chan uuid.UUID
	err   error
}

func (f *fakeSchema) Ingest(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) (schema.IngestResult, error) {
	if f.calls != nil {
		f.calls <- connectionID
	}
	return schema.IngestResult{}, f.err
}

type fakeOrchestrator struct {
	mutate func(turn *contracts.ConversationTurn)
	err    error
}

func (f *fakeOrchestrator) HandleTurn(ctx context.Context, turn *contracts.ConversationTurn) error {
	if f.err != nil {
		return f.err
	}
	if f.mutate != nil {
		f.mutate(turn)
	}
	return nil
}

func newTestRouter(a AuthManager, conns ConnectionManager, sch SchemaIngestor, orch Orchestrator) *Router {
	if a == nil {
		a = &fakeAuth{}
	}
	if conns == nil {
		conns = &fakeConnections{}
	}
	if sch == nil {
		sch = &fakeSchema{}
	}
	if orch == nil {
		orch = &fakeOrchestrator{}
	}
	return New(Config{Address: "127.0.0.1", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}, a, conns, sch, orch, nil, nil)
}
