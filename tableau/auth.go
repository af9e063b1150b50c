package tableau

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/pkg/errors"
)

// SignIn authenticates with the administrator credentials, optionally impersonating
// credentials.ImpersonateUserID.
func (c *Client) SignIn(ctx context.Context, credentials sessions.Credentials) (*sessions.Session, error) {
	request := signInRequest{
		Credentials: signInCredentials{
			Name:     credentials.Username,
			Password: credentials.Password,
			Site:     siteRef{ContentURL: credentials.Site},
		},
	}
	if credentials.Impersonating() {
		request.Credentials.User = &userRef{ID: credentials.ImpersonateUserID}
	}

	var response signInResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("auth/signin"), "", request, &response); err != nil {
		return nil, apperrors.Mark(errors.Wrapf(err, "[Client.SignIn] %s", credentials.Identity()), apperrors.ErrAuth)
	}
	if response.Credentials.Token == "" {
		return nil, errors.Wrapf(apperrors.ErrAuth, "[Client.SignIn] %s: empty token in response", credentials.Identity())
	}

	c.logger.Debug().
		Str("identity", credentials.Identity()).
		Str("site_id", response.Credentials.Site.ID).
		Str("user_id", response.Credentials.User.ID).
		Msg("Sign in accepted")

	return &sessions.Session{
		Token:          response.Credentials.Token,
		SiteID:         response.Credentials.Site.ID,
		SiteContentURL: response.Credentials.Site.ContentURL,
		UserID:         response.Credentials.User.ID,
		SignedInAt:     time.Now(),
	}, nil
}

// SignOut invalidates the session token on the server.
func (c *Client) SignOut(ctx context.Context, session *sessions.Session) error {
	token := session.AuthToken()
	if token == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint("auth/signout"), token, nil, nil); err != nil {
		return errors.Wrapf(err, "[Client.SignOut] %s", session.Identity)
	}
	return nil
}
