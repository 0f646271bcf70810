package connection

import (
	"context"
	"errors"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// Service implements connection establishment, pooling, testing and
// teardown against a Repository and a LiveConnectionFactory. It holds no
// actor/mailbox state — Manager wraps it with the component's single-
// threaded message loop, which is what makes the in-memory map safe
// without its own locking.
type Service struct {
	repo    Repository
	factory LiveConnectionFactory
	cipher  *PasswordCipher

	vectorIndex IndexPurger
	graphIndex  IndexPurger

	live map[uuid.UUID]*LiveConnection
}

// NewService creates a new Service. vectorIndex and graphIndex may be nil
// — deleteSaved then skips cascade purge, which is useful in isolated
// component tests.
func NewService(repo Repository, factory LiveConnectionFactory, cipher *PasswordCipher, vectorIndex, graphIndex IndexPurger) *Service {
	return &Service{
		repo:        repo,
		factory:     factory,
		cipher:      cipher,
		vectorIndex: vectorIndex,
		graphIndex:  graphIndex,
		live:        make(map[uuid.UUID]*LiveConnection),
	}
}

// Establish opens a live connection, then persists it as a SavedConnection
// with isActive=true. The live connection is closed if persistence fails.
// A name that already belongs to an active connection of the user is
// rejected as Duplicate before any connection is opened.
func (s *Service) Establish(ctx context.Context, req EstablishRequest) (uuid.UUID, error) {
	if err := validateEstablishRequest(req); err != nil {
		return uuid.Nil, err
	}

	if _, err := s.repo.GetActiveByName(ctx, req.UserID, req.ConnectionName); err == nil {
		return uuid.Nil, contracts.NewError(contracts.ErrDuplicate, "a connection with this name already exists")
	} else if !errors.Is(err, ErrConnectionNotFound) {
		return uuid.Nil, contracts.AsError(err)
	}

	handle, err := s.factory.Open(ctx, dialTarget{
		kind:                 req.Kind,
		host:                 req.Host,
		port:                 req.Port,
		databaseName:         req.DatabaseName,
		username:             req.Username,
		password:             req.Password,
		additionalProperties: req.AdditionalProperties,
	})
	if err != nil {
		return uuid.Nil, contracts.NewErrorf(contracts.ErrUnreachable, "failed to open connection: %v", err)
	}

	encrypted, err := s.cipher.Encrypt(req.Password)
	if err != nil {
		_ = handle.Close()
		return uuid.Nil, contracts.NewErrorf(contracts.ErrInternal, "failed to encrypt password: %v", err)
	}

	now := time.Now()
	connectionID := uuid.New()
	saved := &SavedConnection{
		ID:                   connectionID,
		UserID:               req.UserID,
		ConnectionName:       req.ConnectionName,
		Kind:                 req.Kind,
		Host:                 req.Host,
		Port:                 req.Port,
		DatabaseName:         req.DatabaseName,
		Username:             req.Username,
		EncryptedPassword:    encrypted,
		AdditionalProperties: req.AdditionalProperties,
		IsActive:             true,
		CreatedAt:            now,
	}

	if err := s.repo.Create(ctx, saved); err != nil {
		_ = handle.Close()
		return uuid.Nil, contracts.NewErrorf(contracts.ErrInternal, "failed to persist connection: %v", err)
	}

	s.live[connectionID] = &LiveConnection{
		ConnectionID: connectionID,
		UserID:       req.UserID,
		Kind:         req.Kind,
		handle:       handle,
		openedAt:     now,
	}

	return connectionID, nil
}

// ConnectSaved opens a live connection for an existing SavedConnection
// owned by userID, registers it in the map, and updates lastUsedAt.
func (s *Service) ConnectSaved(ctx context.Context, connectionID, userID uuid.UUID) error {
	saved, err := s.ownedActiveConnection(ctx, connectionID, userID)
	if err != nil {
		return err
	}

	password, err := s.cipher.Decrypt(saved.EncryptedPassword)
	if err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "failed to decrypt password: %v", err)
	}

	handle, err := s.factory.Open(ctx, dialTarget{
		kind:                 saved.Kind,
		host:                 saved.Host,
		port:                 saved.Port,
		databaseName:         saved.DatabaseName,
		username:             saved.Username,
		password:             password,
		additionalProperties: saved.AdditionalProperties,
	})
	if err != nil {
		return contracts.NewErrorf(contracts.ErrUnreachable, "failed to open connection: %v", err)
	}

	now := time.Now()
	if err := s.repo.TouchLastUsed(ctx, connectionID, now); err != nil {
		_ = handle.Close()
		return contracts.NewErrorf(contracts.ErrInternal, "failed to record last use: %v", err)
	}

	s.live[connectionID] = &LiveConnection{
		ConnectionID: connectionID,
		UserID:       userID,
		Kind:         saved.Kind,
		handle:       handle,
		openedAt:     now,
	}
	return nil
}

// ListSaved returns every active SavedConnection owned by userID, in
// persisted (creation) order.
func (s *Service) ListSaved(ctx context.Context, userID uuid.UUID) ([]*SavedConnection, error) {
	list, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, contracts.AsError(err)
	}
	return list, nil
}

// Test opens a connection and immediately closes it without storing
// anything, used to validate connection parameters before Establish.
func (s *Service) Test(ctx context.Context, req EstablishRequest) error {
	if err := validateEstablishRequest(req); err != nil {
		return err
	}

	handle, err := s.factory.Open(ctx, dialTarget{
		kind:                 req.Kind,
		host:                 req.Host,
		port:                 req.Port,
		databaseName:         req.DatabaseName,
		username:             req.Username,
		password:             req.Password,
		additionalProperties: req.AdditionalProperties,
	})
	if err != nil {
		return contracts.NewErrorf(contracts.ErrUnreachable, "connection unreachable: %v", err)
	}
	_ = handle.Close()
	return nil
}

// Close removes a live connection from the map, closes its driver handle
// best-effort, then soft-deletes the SavedConnection regardless of whether
// the close succeeded.
func (s *Service) Close(ctx context.Context, connectionID, userID uuid.UUID, warn func(format string, args ...interface{})) error {
	saved, err := s.ownedConnection(ctx, connectionID, userID)
	if err != nil {
		return err
	}

	if live, ok := s.live[connectionID]; ok {
		delete(s.live, connectionID)
		if err := live.Close(); err != nil && warn != nil {
			warn("failed to close live connection %s: %v", connectionID, err)
		}
	}

	if err := s.repo.Deactivate(ctx, saved.ID); err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "failed to deactivate connection: %v", err)
	}
	return nil
}

// DeleteSaved closes any live connection, soft-deletes then hard-deletes
// the SavedConnection, and asks VectorIndex and GraphIndex to purge all
// data keyed by connectionID before returning success.
func (s *Service) DeleteSaved(ctx context.Context, connectionID, userID uuid.UUID, warn func(format string, args ...interface{})) error {
	saved, err := s.ownedConnection(ctx, connectionID, userID)
	if err != nil {
		return err
	}

	if live, ok := s.live[connectionID]; ok {
		delete(s.live, connectionID)
		if err := live.Close(); err != nil && warn != nil {
			warn("failed to close live connection %s: %v", connectionID, err)
		}
	}

	if err := s.repo.Deactivate(ctx, saved.ID); err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "failed to deactivate connection: %v", err)
	}
	if err := s.repo.Delete(ctx, saved.ID); err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "failed to delete connection: %v", err)
	}

	if s.vectorIndex != nil {
		if err := s.vectorIndex.PurgeConnection(ctx, connectionID); err != nil {
			return contracts.NewErrorf(contracts.ErrInternal, "failed to purge vector index: %v", err)
		}
	}
	if s.graphIndex != nil {
		if err := s.graphIndex.PurgeConnection(ctx, connectionID); err != nil {
			return contracts.NewErrorf(contracts.ErrInternal, "failed to purge graph index: %v", err)
		}
	}
	return nil
}

// Query runs query against connectionID's live driver handle, owned by
// userID, bounding the result at maxRows. Manager instead calls
// resolveQueryable directly so the blocking driver call can run off the
// component's loop goroutine; this method is for direct/test use.
func (s *Service) Query(ctx context.Context, connectionID, userID uuid.UUID, query string, maxRows int) (contracts.Rows, error) {
	runner, err := s.resolveQueryable(connectionID, userID)
	if err != nil {
		return contracts.Rows{}, err
	}
	rows, err := runner.Query(ctx, query, maxRows)
	if err != nil {
		return contracts.Rows{}, contracts.NewErrorf(contracts.ErrDriverError, "%v", err)
	}
	return rows, nil
}

// resolveQueryable looks up connectionID's live driver handle, owned by
// userID, and returns it as a queryableHandle. This is a plain map read and
// is safe to call from the component's loop goroutine; the blocking Query
// call itself must run off-loop, which is why this is split out from it.
func (s *Service) resolveQueryable(connectionID, userID uuid.UUID) (queryableHandle, error) {
	live, ok := s.live[connectionID]
	if !ok || live.UserID != userID {
		return nil, contracts.NewError(contracts.ErrNotFound, "connection not found")
	}

	runner, ok := live.handle.(queryableHandle)
	if !ok {
		return nil, contracts.NewError(contracts.ErrDriverError, "connection does not support queries")
	}
	return runner, nil
}

// Kind reports the DatabaseKind of connectionID, owned by userID, without
// requiring the connection to currently be live.
func (s *Service) Kind(ctx context.Context, connectionID, userID uuid.UUID) (DatabaseKind, error) {
	saved, err := s.ownedConnection(ctx, connectionID, userID)
	if err != nil {
		return "", err
	}
	return saved.Kind, nil
}

// Status reports whether connectionID is currently live and owned by userID.
func (s *Service) Status(ctx context.Context, connectionID, userID uuid.UUID) (Status, error) {
	if _, err := s.ownedConnection(ctx, connectionID, userID); err != nil {
		return "", err
	}
	if _, ok := s.live[connectionID]; ok {
		return StatusActive, nil
	}
	return StatusInactive, nil
}

// Shutdown closes every live connection exactly once and clears the map.
// Individual close failures never block the remaining closes.
func (s *Service) Shutdown(warn func(format string, args ...interface{})) {
	for id, live := range s.live {
		if err := live.Close(); err != nil && warn != nil {
			warn("failed to close live connection %s during shutdown: %v", id, err)
		}
		delete(s.live, id)
	}
}

func (s *Service) ownedConnection(ctx context.Context, connectionID, userID uuid.UUID) (*SavedConnection, error) {
	saved, err := s.repo.Get(ctx, connectionID)
	if err != nil {
		if errors.Is(err, ErrConnectionNotFound) {
			return nil, contracts.NewError(contracts.ErrNotFound, "connection not found")
		}
		return nil, contracts.AsError(err)
	}
	if saved.UserID != userID {
		return nil, contracts.NewError(contracts.ErrNotFound, "connection not found")
	}
	return saved, nil
}

func (s *Service) ownedActiveConnection(ctx context.Context, connectionID, userID uuid.UUID) (*SavedConnection, error) {
	saved, err := s.ownedConnection(ctx, connectionID, userID)
	if err != nil {
		return nil, err
	}
	if !saved.IsActive {
		return nil, contracts.NewError(contracts.ErrNotFound, "connection not found")
	}
	return saved, nil
}

func validateEstablishRequest(req EstablishRequest) error {
	if req.ConnectionName == "" {
		return contracts.NewError(contracts.ErrValidation, "connection name is required")
	}
	if req.Host == "" {
		return contracts.NewError(contracts.ErrValidation, "host is required")
	}
	if req.DatabaseName == "" {
		return contracts.NewError(contracts.ErrValidation, "database name is required")
	}
	if req.Username == "" {
		return contracts.NewError(contracts.ErrValidation, "username is required")
	}
	if req.Port <= 0 {
		return contracts.NewError(contracts.ErrValidation, "port must be positive")
	}
	if !req.Kind.supported() {
		return contracts.NewErrorf(contracts.ErrValidation, "unsupported database kind: %s", req.Kind)
	}
	return nil
}
