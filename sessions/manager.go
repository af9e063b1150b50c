package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultSignOutTimeout = 30 * time.Second

// Manager opens scoped sessions for the administrator, either as itself or impersonating
// another user. Exactly one session is open per call and it is always signed out.
type Manager struct {
	auth           Authenticator
	admin          Credentials
	logger         zerolog.Logger
	signOutTimeout time.Duration
	nowTime        func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSignOutTimeout bounds the sign-out call made when a scope ends.
func WithSignOutTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.signOutTimeout = timeout
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a session manager for the given administrator credentials.
func NewManager(auth Authenticator, admin Credentials, options ...ManagerOption) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}
	if admin.Username == "" {
		return nil, errors.New("[NewManager] admin username is required")
	}
	if admin.Impersonating() {
		return nil, errors.New("[NewManager] admin credentials must not impersonate")
	}

	m := &Manager{
		auth:           auth,
		admin:          admin,
		logger:         zerolog.Nop(),
		signOutTimeout: defaultSignOutTimeout,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// WithAdmin runs fn inside a session authenticated as the administrator.
func (m *Manager) WithAdmin(ctx context.Context, fn func(*Session) error) error {
	return m.With(ctx, m.admin, fn)
}

// WithImpersonation runs fn inside a session that acts as userID.
func (m *Manager) WithImpersonation(ctx context.Context, userID string, fn func(*Session) error) error {
	if userID == "" {
		return errors.Wrap(apperrors.ErrInvalidRequest, "[Manager.WithImpersonation] user id is required")
	}
	credentials := m.admin
	credentials.ImpersonateUserID = userID
	return m.With(ctx, credentials, fn)
}

// With signs in with credentials, runs fn and signs out on every exit path, including
// errors and panics. A sign-out failure is joined with fn's error.
func (m *Manager) With(ctx context.Context, credentials Credentials, fn func(*Session) error) (returnError error) {
	identity := credentials.Identity()

	session, err := m.auth.SignIn(ctx, credentials)
	if err != nil {
		m.logger.Error().Err(err).Str("identity", identity).Msg("Sign in failed")
		return apperrors.Mark(errors.Wrapf(err, "[Manager.With] sign in as %s", identity), apperrors.ErrAuth)
	}
	if !session.Open() {
		return errors.Wrapf(apperrors.ErrAuth, "[Manager.With] sign in as %s returned no token", identity)
	}
	session.Identity = identity
	if credentials.Impersonating() && session.UserID != "" && session.UserID != credentials.ImpersonateUserID {
		m.release(ctx, session)
		return errors.Wrapf(apperrors.ErrAuth, "[Manager.With] requested user %s but server signed in %s", credentials.ImpersonateUserID, session.UserID)
	}
	if session.UserID == "" {
		session.UserID = credentials.ImpersonateUserID
	}
	if session.SignedInAt.IsZero() {
		session.SignedInAt = m.nowTime()
	}
	m.logger.Debug().Str("identity", identity).Str("site_id", session.SiteID).Msg("Signed in")

	defer func() {
		r := recover()
		if err := m.release(ctx, session); err != nil {
			returnError = apperrors.Join(returnError, err)
		}
		if r != nil {
			panic(r)
		}
	}()

	return fn(session)
}

func (m *Manager) release(ctx context.Context, session *Session) error {
	defer session.Close()

	signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.signOutTimeout)
	defer cancel()

	if err := m.auth.SignOut(signOutCtx, session); err != nil {
		m.logger.Error().Err(err).Str("identity", session.Identity).Msg("Sign out failed")
		return errors.Wrapf(err, "[Manager.With] sign out %s", session.Identity)
	}
	m.logger.Debug().Str("identity", session.Identity).Dur("held", m.nowTime().Sub(session.SignedInAt)).Msg("Signed out")
	return nil
}
