package token

import (
	"context"

	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
)

// Recorder persists minted tokens.
type Recorder interface {
	Record(record *PatRecord) error
}

// Issuer asks the server for a new PAT named clientID for the session's identity.
type Issuer interface {
	CreatePersonalAccessToken(ctx context.Context, session *sessions.Session, clientID string) (string, error)
}
