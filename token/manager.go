package token

import (
	"context"

	"github.com/google/uuid"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Manager mints one PAT for a user inside that user's impersonated session and records it.
type Manager struct {
	issuer   Issuer
	recorder Recorder
	newName  func() string
	logger   zerolog.Logger
}

type ManagerOption func(*Manager)

// WithNameFunc replaces the token name generator (primarily for testing).
func WithNameFunc(newName func() string) ManagerOption {
	return func(m *Manager) {
		m.newName = newName
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(issuer Issuer, recorder Recorder, options ...ManagerOption) (*Manager, error) {
	if issuer == nil {
		return nil, errors.New("[token.New] issuer is required")
	}
	if recorder == nil {
		return nil, errors.New("[token.New] recorder is required")
	}

	m := &Manager{
		issuer:   issuer,
		recorder: recorder,
		newName:  uuid.NewString,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Mint creates a token named with a fresh random identifier and records it. Nothing is
// recorded when the server refuses the token.
func (m *Manager) Mint(ctx context.Context, session *sessions.Session, user users.ResolvedUser) (*PatRecord, error) {
	name := m.newName()
	m.logger.Debug().Str("user_id", user.UserID).Str("token_name", name).Msg("Creating PAT")

	value, err := m.issuer.CreatePersonalAccessToken(ctx, session, name)
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager.Mint] %s", user.Username)
	}

	record := &PatRecord{
		UserID:     user.UserID,
		TokenName:  name,
		TokenValue: value,
	}
	if err := m.recorder.Record(record); err != nil {
		return nil, errors.Wrapf(err, "[Manager.Mint] recording token for %s", user.Username)
	}

	m.logger.Info().Str("username", user.Username).Str("user_id", user.UserID).Str("token_name", name).Msg("PAT created")
	return record, nil
}
