// Package common defines shared constants and sentinel errors used across
// tubequery components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInvalidInput = errors.New("invalid input")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Document/index lifecycle errors.
	ErrNoDocuments = errors.New("no documents ingested")
	ErrNoIndex     = errors.New("no index built")

	// Upstream collaborator errors (transcript fetch, model APIs).
	ErrUpstream = errors.New("upstream failure")
)
