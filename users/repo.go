package users

import (
	"context"

	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
)

// Directory queries the users of the site a session is signed in to.
type Directory interface {
	// FindUsersByName returns every user whose name equals name.
	FindUsersByName(ctx context.Context, session *sessions.Session, name string) ([]User, error)
}
