package domain

import "errors"

var (
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialInvalid means the refresh token was rejected or is
	// missing. The user has to reconnect; never retried automatically.
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrStagedNotFound    = errors.New("staged credential not found")
	ErrStagedExpired     = errors.New("staged credential expired")
	ErrInvalidState      = errors.New("invalid oauth state")
)
