package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepository is an in-memory Repository used by this package's tests.
type fakeRepository struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*User
	sessions map[uuid.UUID]*Session
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    make(map[uuid.UUID]*User),
		sessions: make(map[uuid.UUID]*Session),
	}
}

func copyUser(u *User) *User {
	cp := *u
	return &cp
}

func copySession(s *Session) *Session {
	cp := *s
	return &cp
}

func (f *fakeRepository) CreateUser(ctx context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (f *fakeRepository) UpdateUser(ctx context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeRepository) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, u := range f.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) CreateSession(ctx context.Context, session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = copySession(session)
	return nil
}

func (f *fakeRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

func (f *fakeRepository) UpdateSession(ctx context.Context, session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	f.sessions[session.ID] = copySession(session)
	return nil
}

func (f *fakeRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(before) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}
