package provisioner

import (
	"context"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/token"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SessionScoper opens scoped admin and impersonated sessions.
type SessionScoper interface {
	WithAdmin(ctx context.Context, fn func(*sessions.Session) error) error
	WithImpersonation(ctx context.Context, userID string, fn func(*sessions.Session) error) error
}

// UserResolver resolves configured usernames to user IDs.
type UserResolver interface {
	ResolveAll(ctx context.Context, session *sessions.Session, usernames []string) ([]users.ResolvedUser, error)
}

// TokenMinter creates and records one PAT for a user.
type TokenMinter interface {
	Mint(ctx context.Context, session *sessions.Session, user users.ResolvedUser) (*token.PatRecord, error)
}

// Deps holds all collaborators of the Service
type Deps struct {
	Sessions SessionScoper // Scoped sign-in/sign-out
	Users    UserResolver  // Username to user ID lookups
	Tokens   TokenMinter   // PAT creation and recording
}

// Summary is what a run achieved. On failure it holds whatever completed before the error.
type Summary struct {
	Resolved []users.ResolvedUser
	Records  []token.PatRecord
}

// Service runs the provisioning batch: resolve every user under one admin session, then
// mint one token per user inside that user's impersonated session.
type Service struct {
	deps       Deps
	logger     zerolog.Logger
	onResolved func([]users.ResolvedUser)
	onMinted   func(done, total int, record token.PatRecord)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithResolvedHook is called once every username has been resolved.
func WithResolvedHook(fn func([]users.ResolvedUser)) ServiceOption {
	return func(s *Service) {
		s.onResolved = fn
	}
}

// WithProgress is called after each user's token has been recorded.
func WithProgress(fn func(done, total int, record token.PatRecord)) ServiceOption {
	return func(s *Service) {
		s.onMinted = fn
	}
}

func NewService(deps Deps, options ...ServiceOption) (*Service, error) {
	if deps.Sessions == nil {
		return nil, errors.New("[NewService] Sessions is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[NewService] Users is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewService] Tokens is required")
	}

	s := &Service{
		deps:       deps,
		logger:     zerolog.Nop(),
		onResolved: func([]users.ResolvedUser) {},
		onMinted:   func(int, int, token.PatRecord) {},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Run provisions a token for every username, in order. It stops at the first failure;
// records written before the failure stay in place and are returned in the Summary.
func (s *Service) Run(ctx context.Context, usernames []string) (*Summary, error) {
	summary := &Summary{}
	if len(usernames) == 0 {
		return summary, errors.Wrap(apperrors.ErrInvalidRequest, "[Service.Run] no usernames")
	}

	s.logger.Info().Int("users", len(usernames)).Msg("Resolving users")
	err := s.deps.Sessions.WithAdmin(ctx, func(session *sessions.Session) error {
		resolved, err := s.deps.Users.ResolveAll(ctx, session, usernames)
		if err != nil {
			return err
		}
		summary.Resolved = resolved
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("User resolution failed, no tokens minted")
		return summary, errors.Wrap(err, "[Service.Run] resolving users")
	}
	s.onResolved(summary.Resolved)

	s.logger.Info().Int("users", len(summary.Resolved)).Msg("Minting tokens")
	for i, user := range summary.Resolved {
		if err := ctx.Err(); err != nil {
			return summary, errors.Wrapf(err, "[Service.Run] stopped before %s", user.Username)
		}

		err := s.deps.Sessions.WithImpersonation(ctx, user.UserID, func(session *sessions.Session) error {
			record, err := s.deps.Tokens.Mint(ctx, session, user)
			if err != nil {
				return err
			}
			summary.Records = append(summary.Records, *record)
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("username", user.Username).Str("user_id", user.UserID).Msg("Token minting failed, stopping")
			return summary, errors.Wrapf(err, "[Service.Run] user %s", user.Username)
		}
		s.onMinted(i+1, len(summary.Resolved), summary.Records[len(summary.Records)-1])
	}

	s.logger.Info().Int("tokens", len(summary.Records)).Msg("Done")
	return summary, nil
}
