package provisioner_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/provisioner"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/tableau"
	"github.com/jrsteele09/tableau-pat-provisioner/tableau/fakeserver"
	"github.com/jrsteele09/tableau-pat-provisioner/token"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/jrsteele09/tableau-pat-provisioner/vizportal"
	"github.com/stretchr/testify/require"
)

type serverFixture struct {
	server  *fakeserver.Server
	output  string
	service *provisioner.Service
}

// setupServerFixture wires the real REST, vizportal and file adapters against a TLS
// fake server.
func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	server := fakeserver.New(true)
	t.Cleanup(server.Close)
	server.AddUser("U1", "alice")
	server.AddUser("U2", "bob")

	rest, err := tableau.NewClient(server.URL, server.APIVersion, true, tableau.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	viz, err := vizportal.NewClient(rest.ServerAddress())
	require.NoError(t, err)

	manager, err := sessions.NewManager(rest, sessions.Credentials{
		Username: server.AdminName,
		Password: server.AdminPassword,
		Site:     server.SiteContent,
	})
	require.NoError(t, err)
	resolver, err := users.NewResolver(rest)
	require.NoError(t, err)

	output := filepath.Join(t.TempDir(), "pat_tokens.txt")
	minter, err := token.New(viz, token.NewFileRecorder(output))
	require.NoError(t, err)

	service, err := provisioner.NewService(provisioner.Deps{Sessions: manager, Users: resolver, Tokens: minter})
	require.NoError(t, err)

	return &serverFixture{server: server, output: output, service: service}
}

func TestServerRun_AliceAndBob(t *testing.T) {
	f := setupServerFixture(t)

	_, err := f.service.Run(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)

	records, err := token.ReadRecordsFile(f.output)
	require.NoError(t, err)
	pats := f.server.PATs()
	require.Len(t, records, 2)
	require.Len(t, pats, 2)
	for i, userID := range []string{"U1", "U2"} {
		require.Equal(t, userID, records[i].UserID)
		require.Equal(t, userID, pats[i].UserID, "token must be issued as the impersonated user")
		require.Equal(t, pats[i].ClientID, records[i].TokenName)
		require.Equal(t, pats[i].Value, records[i].TokenValue)
	}

	signIns := f.server.SignIns()
	require.Len(t, signIns, 3)
	require.Empty(t, signIns[0].ImpersonateID)
	require.Equal(t, "U1", signIns[1].ImpersonateID)
	require.Equal(t, "U2", signIns[2].ImpersonateID)
	require.Equal(t, 3, f.server.SignOuts())
	require.Equal(t, 0, f.server.OpenSessions())
}

func TestServerRun_CarolNotFound(t *testing.T) {
	f := setupServerFixture(t)

	_, err := f.service.Run(context.Background(), []string{"alice", "carol", "bob"})

	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.Len(t, f.server.SignIns(), 1, "only the admin session opens")
	require.Equal(t, 0, f.server.OpenSessions())
	_, statErr := os.Stat(f.output)
	require.True(t, os.IsNotExist(statErr), "no output is written")
}

func TestServerRun_VizportalRejects(t *testing.T) {
	f := setupServerFixture(t)
	f.server.FailPAT("U2", http.StatusInternalServerError, "internal error")

	_, err := f.service.Run(context.Background(), []string{"alice", "bob"})

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "internal error")

	records, err := token.ReadRecordsFile(f.output)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "U1", records[0].UserID)
	require.Equal(t, 0, f.server.OpenSessions())
}
