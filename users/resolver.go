package users

import (
	"context"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Resolver turns configured usernames into server user IDs.
type Resolver struct {
	directory Directory
	policy    DuplicatePolicy
	logger    zerolog.Logger
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

func WithDuplicatePolicy(policy DuplicatePolicy) ResolverOption {
	return func(r *Resolver) {
		r.policy = policy
	}
}

func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(directory Directory, options ...ResolverOption) (*Resolver, error) {
	if directory == nil {
		return nil, errors.New("[NewResolver] directory is required")
	}
	r := &Resolver{
		directory: directory,
		policy:    DuplicateError,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve looks up username on the session's site and returns its user ID.
// No match yields ErrUserNotFound; several matches yield ErrAmbiguousUser unless the
// resolver was built with DuplicateFirst.
func (r *Resolver) Resolve(ctx context.Context, session *sessions.Session, username string) (ResolvedUser, error) {
	if !session.Open() {
		return ResolvedUser{}, errors.Wrap(apperrors.ErrSessionClosed, "[Resolver.Resolve]")
	}

	matches, err := r.directory.FindUsersByName(ctx, session, username)
	if err != nil {
		return ResolvedUser{}, errors.Wrapf(err, "[Resolver.Resolve] query %q", username)
	}
	r.logger.Debug().Str("username", username).Int("matches", len(matches)).Msg("Queried users")

	switch {
	case len(matches) == 0:
		return ResolvedUser{}, errors.Wrapf(apperrors.ErrUserNotFound, "[Resolver.Resolve] %q", username)
	case len(matches) > 1 && r.policy != DuplicateFirst:
		return ResolvedUser{}, errors.Wrapf(apperrors.ErrAmbiguousUser, "[Resolver.Resolve] %q matched %d users", username, len(matches))
	case len(matches) > 1:
		r.logger.Warn().Str("username", username).Int("matches", len(matches)).Msg("Several users match, using the first")
	}

	if matches[0].ID == "" {
		return ResolvedUser{}, errors.Wrapf(apperrors.ErrUserNotFound, "[Resolver.Resolve] %q has no id", username)
	}

	resolved := ResolvedUser{Username: username, UserID: matches[0].ID}
	r.logger.Info().Str("username", username).Str("user_id", resolved.UserID).Msg("Found user")
	return resolved, nil
}

// ResolveAll resolves usernames in order and stops at the first failure.
func (r *Resolver) ResolveAll(ctx context.Context, session *sessions.Session, usernames []string) ([]ResolvedUser, error) {
	resolved := make([]ResolvedUser, 0, len(usernames))
	for _, username := range usernames {
		user, err := r.Resolve(ctx, session, username)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, user)
	}
	return resolved, nil
}
