package tableau_test

import (
	"context"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/tableau"
	"github.com/jrsteele09/tableau-pat-provisioner/tableau/fakeserver"
	"github.com/stretchr/testify/require"
)

func adminCredentials(server *fakeserver.Server) sessions.Credentials {
	return sessions.Credentials{
		Username: server.AdminName,
		Password: server.AdminPassword,
		Site:     server.SiteContent,
	}
}

func setupClient(t *testing.T, server *fakeserver.Server) *tableau.Client {
	t.Helper()

	client, err := tableau.NewClient(server.URL+"/", server.APIVersion, true, tableau.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := tableau.NewClient("", "3.19", true)
	require.Error(t, err)

	_, err = tableau.NewClient("https://tableau.example.com", "", true)
	require.Error(t, err)

	client, err := tableau.NewClient("https://tableau.example.com//", "3.19", false)
	require.NoError(t, err)
	require.Equal(t, "https://tableau.example.com", client.ServerAddress())
	require.Equal(t, "3.19", client.APIVersion())
}

func TestSignIn_Admin(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	client := setupClient(t, server)

	session, err := client.SignIn(context.Background(), adminCredentials(server))

	require.NoError(t, err)
	require.True(t, session.Open())
	require.Equal(t, fakeserver.SiteID, session.SiteID)
	require.Equal(t, server.SiteContent, session.SiteContentURL)
	require.Equal(t, fakeserver.AdminID, session.UserID)
	require.Equal(t, []fakeserver.SignIn{{Name: "admin", Site: "marketing"}}, server.SignIns())

	require.NoError(t, client.SignOut(context.Background(), session))
	require.Equal(t, 0, server.OpenSessions())
}

func TestSignIn_Impersonation(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	server.AddUser("U1", "alice")
	client := setupClient(t, server)

	credentials := adminCredentials(server)
	credentials.ImpersonateUserID = "U1"
	session, err := client.SignIn(context.Background(), credentials)

	require.NoError(t, err)
	require.Equal(t, "U1", session.UserID)
	require.Equal(t, "U1", server.SignIns()[0].ImpersonateID)
}

func TestSignIn_BadCredentials(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	client := setupClient(t, server)

	credentials := adminCredentials(server)
	credentials.Password = "wrong"
	_, err := client.SignIn(context.Background(), credentials)

	require.ErrorIs(t, err, apperrors.ErrAuth)
	require.ErrorIs(t, err, apperrors.ErrAPI)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "401001")
	require.NotContains(t, err.Error(), "wrong", "password must not leak into errors")
}

func TestSignIn_VerifyRejectsSelfSignedCertificate(t *testing.T) {
	server := fakeserver.New(true)
	defer server.Close()

	client, err := tableau.NewClient(server.URL, server.APIVersion, true)
	require.NoError(t, err)

	_, err = client.SignIn(context.Background(), adminCredentials(server))
	require.ErrorIs(t, err, apperrors.ErrAuth)
	require.Empty(t, server.SignIns(), "TLS handshake must fail before the request reaches the server")
}

func TestSignIn_NoVerifyAcceptsSelfSignedCertificate(t *testing.T) {
	server := fakeserver.New(true)
	defer server.Close()

	client, err := tableau.NewClient(server.URL, server.APIVersion, false)
	require.NoError(t, err)

	session, err := client.SignIn(context.Background(), adminCredentials(server))
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background(), session))
}

func TestSignOut_ClosedSessionIsNoop(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	client := setupClient(t, server)

	session := &sessions.Session{Token: "t"}
	session.Close()

	require.NoError(t, client.SignOut(context.Background(), session))
	require.Equal(t, 0, server.SignOuts())
}

func TestFindUsersByName(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	server.AddUser("U1", "alice")
	server.AddUser("U2", "bob")
	server.AddUser("U3", "alice")
	client := setupClient(t, server)

	session, err := client.SignIn(context.Background(), adminCredentials(server))
	require.NoError(t, err)

	matches, err := client.FindUsersByName(context.Background(), session, "bob")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "U2", matches[0].ID)
	require.Equal(t, "Explorer", matches[0].SiteRole)

	matches, err = client.FindUsersByName(context.Background(), session, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	matches, err = client.FindUsersByName(context.Background(), session, "carol")
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestFindUsersByName_ClosedSession(t *testing.T) {
	server := fakeserver.New(false)
	defer server.Close()
	client := setupClient(t, server)

	session, err := client.SignIn(context.Background(), adminCredentials(server))
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background(), session))
	session.Close()

	_, err = client.FindUsersByName(context.Background(), session, "alice")
	require.ErrorIs(t, err, apperrors.ErrSessionClosed)
}
