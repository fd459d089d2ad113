package apperrors

import (
	"errors"
)

var (
	// No valid authorization code arrived within the wait window
	ErrAuthorizationTimeout = errors.New("authorization timed out")

	// No access token could be located (cache, runtime state or environment)
	ErrTokenNotFound = errors.New("access token not found")

	// Secret id is not known to the provider
	ErrSecretNotFound = errors.New("secret not found")

	// Agent runtime returned an operation that never completed
	ErrOperationNotDone = errors.New("operation not done")
)
