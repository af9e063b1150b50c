package fakeuserrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
)

var _ users.Directory = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory user directory. Users are kept in insertion order so that
// duplicate names come back in a stable order.
type FakeUserRepo struct {
	users   []*users.User
	queries []string
	err     error
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{}
}

// Upsert adds a user, assigning an ID when none is set.
func (ur *FakeUserRepo) Upsert(user *users.User) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for i, u := range ur.users {
		if u.ID == user.ID {
			ur.users[i] = user
			return
		}
	}
	ur.users = append(ur.users, user)
}

// FailWith makes every following query return err.
func (ur *FakeUserRepo) FailWith(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.err = err
}

func (ur *FakeUserRepo) FindUsersByName(_ context.Context, session *sessions.Session, name string) ([]users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.queries = append(ur.queries, name)
	if ur.err != nil {
		return nil, ur.err
	}
	if !session.Open() {
		return nil, errors.New("401002: unauthorized access")
	}

	matches := make([]users.User, 0)
	for _, u := range ur.users {
		if u.Name == name {
			matches = append(matches, *u)
		}
	}
	return matches, nil
}

// Queries returns every name queried, in order.
func (ur *FakeUserRepo) Queries() []string {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return append([]string(nil), ur.queries...)
}
