package issuerfake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/token"
)

var _ token.Issuer = (*FakeIssuer)(nil)

// Call is one recorded CreatePersonalAccessToken call.
type Call struct {
	UserID   string // Session identity's user ID
	ClientID string
}

// FakeIssuer returns "secret-<clientID>" unless the session's user is set to fail.
type FakeIssuer struct {
	calls    []Call
	failures map[string]error
	lock     sync.Mutex
}

func NewFakeIssuer() *FakeIssuer {
	return &FakeIssuer{failures: make(map[string]error)}
}

// FailFor makes calls made as userID return err.
func (i *FakeIssuer) FailFor(userID string, err error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.failures[userID] = err
}

func (i *FakeIssuer) CreatePersonalAccessToken(_ context.Context, session *sessions.Session, clientID string) (string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if !session.Open() {
		return "", errors.New("session closed")
	}
	i.calls = append(i.calls, Call{UserID: session.UserID, ClientID: clientID})
	if err, ok := i.failures[session.UserID]; ok {
		return "", err
	}
	return "secret-" + clientID, nil
}

func (i *FakeIssuer) Calls() []Call {
	i.lock.Lock()
	defer i.lock.Unlock()
	return append([]Call(nil), i.calls...)
}
