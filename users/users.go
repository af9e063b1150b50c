package users

import (
	"fmt"
	"strings"
)

// User is a site user record as returned by the Tableau REST API.
type User struct {
	ID       string `json:"id,omitempty"`       // Server-assigned LUID
	Name     string `json:"name,omitempty"`     // Sign-in name, unique within a site
	FullName string `json:"fullName,omitempty"` // Display name
	Email    string `json:"email,omitempty"`
	SiteRole string `json:"siteRole,omitempty"` // Creator, Explorer, Viewer, Unlicensed...
}

// ResolvedUser pairs a configured username with the user ID the server assigned to it.
type ResolvedUser struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// DuplicatePolicy decides what happens when a name filter returns more than one user.
type DuplicatePolicy string

const (
	DuplicateError DuplicatePolicy = "error" // Fail the run
	DuplicateFirst DuplicatePolicy = "first" // Take the first match and log a warning
)

// ParseDuplicatePolicy accepts "error", "first" or "" (error).
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateError:
		return DuplicateError, nil
	case DuplicateFirst:
		return DuplicateFirst, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", s)
}
