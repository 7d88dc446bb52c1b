package roast

import (
	"errors"
	"fmt"
)

var (
	// ErrUsernameRequired is returned when a request carries no username.
	ErrUsernameRequired = errors.New("github username is required")

	// ErrUserNotFound is returned when the GitHub profile lookup reports
	// an unknown user.
	ErrUserNotFound = errors.New("github user not found")
)

// RateLimitError rejects a request that exceeded the client's window.
type RateLimitError struct {
	ResetSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets in %ds", e.ResetSeconds)
}
