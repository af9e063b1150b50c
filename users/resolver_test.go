package users_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/internal/logging"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	fakeuserrepo "github.com/jrsteele09/tableau-pat-provisioner/users/repofake"
	"github.com/stretchr/testify/require"
)

func openSession() *sessions.Session {
	return &sessions.Session{Token: "admin-token", SiteID: "site-luid", Identity: "admin:admin"}
}

func setupDirectory(t *testing.T) *fakeuserrepo.FakeUserRepo {
	t.Helper()

	repo := fakeuserrepo.NewFakeUserRepo()
	repo.Upsert(&users.User{ID: "U1", Name: "alice", SiteRole: "Explorer"})
	repo.Upsert(&users.User{ID: "U2", Name: "bob", SiteRole: "Viewer"})
	return repo
}

func TestResolve_Found(t *testing.T) {
	resolver, err := users.NewResolver(setupDirectory(t))
	require.NoError(t, err)

	user, err := resolver.Resolve(context.Background(), openSession(), "alice")

	require.NoError(t, err)
	require.Equal(t, users.ResolvedUser{Username: "alice", UserID: "U1"}, user)
}

func TestResolve_NotFoundIsTypedError(t *testing.T) {
	resolver, err := users.NewResolver(setupDirectory(t))
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), openSession(), "carol")

	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.Contains(t, err.Error(), "carol")
}

func TestResolve_Duplicates(t *testing.T) {
	repo := setupDirectory(t)
	repo.Upsert(&users.User{ID: "U3", Name: "alice"})

	t.Run("error policy", func(t *testing.T) {
		resolver, err := users.NewResolver(repo)
		require.NoError(t, err)

		_, err = resolver.Resolve(context.Background(), openSession(), "alice")
		require.ErrorIs(t, err, apperrors.ErrAmbiguousUser)
	})

	t.Run("first policy", func(t *testing.T) {
		var buf bytes.Buffer
		resolver, err := users.NewResolver(repo,
			users.WithDuplicatePolicy(users.DuplicateFirst),
			users.WithLogger(logging.NewWithWriter(&buf, "debug")),
		)
		require.NoError(t, err)

		user, err := resolver.Resolve(context.Background(), openSession(), "alice")
		require.NoError(t, err)
		require.Equal(t, "U1", user.UserID)
		require.Contains(t, buf.String(), "Several users match")
	})
}

func TestResolve_ClosedSession(t *testing.T) {
	repo := setupDirectory(t)
	resolver, err := users.NewResolver(repo)
	require.NoError(t, err)

	s := openSession()
	s.Close()
	_, err = resolver.Resolve(context.Background(), s, "alice")

	require.ErrorIs(t, err, apperrors.ErrSessionClosed)
	require.Empty(t, repo.Queries())
}

func TestResolve_DirectoryError(t *testing.T) {
	repo := setupDirectory(t)
	repo.FailWith(errors.New("connection refused"))
	resolver, err := users.NewResolver(repo)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), openSession(), "alice")

	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestResolveAll_KeepsOrderAndStopsAtFirstFailure(t *testing.T) {
	repo := setupDirectory(t)
	resolver, err := users.NewResolver(repo)
	require.NoError(t, err)

	resolved, err := resolver.ResolveAll(context.Background(), openSession(), []string{"bob", "alice"})
	require.NoError(t, err)
	require.Equal(t, []users.ResolvedUser{
		{Username: "bob", UserID: "U2"},
		{Username: "alice", UserID: "U1"},
	}, resolved)

	resolved, err = resolver.ResolveAll(context.Background(), openSession(), []string{"alice", "carol", "bob"})
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.Nil(t, resolved)
	require.Equal(t, []string{"bob", "alice", "alice", "carol"}, repo.Queries())
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := users.ParseDuplicatePolicy("")
	require.NoError(t, err)
	require.Equal(t, users.DuplicateError, p)

	p, err = users.ParseDuplicatePolicy("First")
	require.NoError(t, err)
	require.Equal(t, users.DuplicateFirst, p)

	_, err = users.ParseDuplicatePolicy("last")
	require.Error(t, err)
}

func TestNewResolver_RequiresDirectory(t *testing.T) {
	_, err := users.NewResolver(nil)
	require.Error(t, err)
}
