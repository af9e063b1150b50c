package errors

import (
	"errors"
	"fmt"
)

// Common error types for the PAT provisioner
var (
	// Configuration errors
	ErrConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrAuth          = errors.New("authentication failed")
	ErrSessionClosed = errors.New("session is not open")

	// Resolution errors
	ErrUserNotFound   = errors.New("user not found")
	ErrAmbiguousUser  = errors.New("username matches more than one user")
	ErrInvalidRequest = errors.New("invalid request")

	// Remote API errors
	ErrAPI = errors.New("api request failed")

	// Output errors
	ErrIO = errors.New("output write failed")
)

// APIError represents a non-success HTTP response from Tableau.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request to %s returned status code %d, response body: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap lets callers match any APIError against ErrAPI.
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark attaches a sentinel kind to err while keeping err in the chain.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join so callers need only this package.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
