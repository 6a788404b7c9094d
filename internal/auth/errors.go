package auth

import (
	"fmt"

	"github.com/desertthunder/spotsync/internal/shared"
)

// unknownErrorBody stands in for a failure response that carried no body.
const unknownErrorBody = "Unknown error"

// AuthError is a token endpoint failure: a non-success status, or a success status whose body
// could not be read as a token.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error // set when the body could not be parsed
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed (status %d): %s: %v", e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("auth failed (status %d): %s", e.StatusCode, e.Body)
}

// Is reports [shared.ErrAuthFailed] for every AuthError.
func (e *AuthError) Is(target error) bool {
	return target == shared.ErrAuthFailed
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
