package domain

import "errors"

// Identity is the verified caller of an authenticated request.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

var (
	ErrMissingBearer   = errors.New("authorization header required")
	ErrMalformedBearer = errors.New("invalid authorization header format")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
