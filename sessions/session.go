package sessions

import (
	"sync"
	"time"
)

// Credentials identify who signs in. The administrator always authenticates; when
// ImpersonateUserID is set the resulting session acts as that user instead.
type Credentials struct {
	Username          string // Administrator username
	Password          string // Administrator password
	Site              string // Site content URL, "" for the Default site
	ImpersonateUserID string // Target user ID, empty in admin mode
}

// Impersonating reports whether the credentials request an impersonated session.
func (c Credentials) Impersonating() bool {
	return c.ImpersonateUserID != ""
}

// Identity is a short, log-safe description of who the credentials act as.
func (c Credentials) Identity() string {
	if c.Impersonating() {
		return "user:" + c.ImpersonateUserID
	}
	return "admin:" + c.Username
}

// Session is an authenticated Tableau credential bound to one identity and one site.
// A Session is valid from sign-in until Close; it is never reused for another identity.
type Session struct {
	Token          string    // X-Tableau-Auth token, also the vizportal workgroup_session_id
	SiteID         string    // LUID of the signed-in site
	SiteContentURL string    // Content URL of the signed-in site
	UserID         string    // LUID of the identity the session acts as
	Identity       string    // Identity string from Credentials.Identity
	SignedInAt     time.Time // When sign-in completed

	mu     sync.Mutex
	closed bool
}

// Open reports whether the session can still be used for requests.
func (s *Session) Open() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.Token != ""
}

// AuthToken returns the session token, or "" once the session is closed.
func (s *Session) AuthToken() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	return s.Token
}

// Close marks the session as released. It is idempotent.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.Token = ""
}
