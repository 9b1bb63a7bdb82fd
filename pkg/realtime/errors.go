package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// AuthenticationError is returned when the server rejects a login or resume.
type AuthenticationError struct {
	User string
	Err  error
}

func (e *AuthenticationError) Error() string {
	if e.User == "" {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed for %s: %v", e.User, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
