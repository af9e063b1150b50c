package fakesessions

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
)

var _ sessions.Authenticator = (*FakeAuthenticator)(nil)

// FakeAuthenticator is an in-memory Authenticator that records every sign-in and sign-out.
type FakeAuthenticator struct {
	Password    string            // Accepted admin password
	SiteID      string            // Site LUID returned for every session
	Impersonate map[string]bool   // User IDs the admin may impersonate; nil allows any
	SignInErr   error             // Forced sign-in error
	SignOutErr  error             // Forced sign-out error
	SignIns     []sessions.Credentials
	SignOuts    []string // identities signed out, in order
	open        map[string]*sessions.Session
	lock        sync.Mutex
}

func NewFakeAuthenticator(password string) *FakeAuthenticator {
	return &FakeAuthenticator{
		Password: password,
		SiteID:   "site-luid",
		open:     make(map[string]*sessions.Session),
	}
}

func (a *FakeAuthenticator) SignIn(_ context.Context, credentials sessions.Credentials) (*sessions.Session, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.SignIns = append(a.SignIns, credentials)
	if a.SignInErr != nil {
		return nil, a.SignInErr
	}
	if credentials.Password != a.Password {
		return nil, errors.New("401001: signin error")
	}
	if credentials.Impersonating() && a.Impersonate != nil && !a.Impersonate[credentials.ImpersonateUserID] {
		return nil, errors.New("403: impersonation not allowed")
	}

	userID := credentials.ImpersonateUserID
	if userID == "" {
		userID = "admin-luid"
	}
	session := &sessions.Session{
		Token:          uuid.NewString(),
		SiteID:         a.SiteID,
		SiteContentURL: credentials.Site,
		UserID:         userID,
	}
	a.open[session.Token] = session
	return session, nil
}

func (a *FakeAuthenticator) SignOut(_ context.Context, session *sessions.Session) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.SignOuts = append(a.SignOuts, session.Identity)
	delete(a.open, session.AuthToken())
	return a.SignOutErr
}

// OpenSessions returns how many sessions are signed in and not yet signed out.
func (a *FakeAuthenticator) OpenSessions() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.open)
}

// Impersonations returns the user IDs of every impersonated sign-in attempt, in order.
func (a *FakeAuthenticator) Impersonations() []string {
	a.lock.Lock()
	defer a.lock.Unlock()

	ids := make([]string, 0)
	for _, c := range a.SignIns {
		if c.Impersonating() {
			ids = append(ids, c.ImpersonateUserID)
		}
	}
	return ids
}
