package sessions

import "context"

// Authenticator signs sessions in and out against the Tableau REST API.
type Authenticator interface {
	SignIn(ctx context.Context, credentials Credentials) (*Session, error)
	SignOut(ctx context.Context, session *Session) error
}
