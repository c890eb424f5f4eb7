package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoActor indicates a request without a resolved caller identity.
	ErrNoActor = errors.New("no actor on request")
	// ErrInactiveUser indicates a deactivated user account.
	ErrInactiveUser = errors.New("user is inactive")
)
