// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across gateway/service layers.
var (
	// ErrValidation indicates a client-side form check failed; no request was sent.
	ErrValidation = errors.New("validation")

	// ErrNetwork indicates the backend could not be reached (transport failure).
	ErrNetwork = errors.New("network")

	// ErrUnauthorized indicates invalid credentials or an expired session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated user lacks permission (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested record or collection does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrInvalidFields indicates the backend rejected the submitted fields (HTTP 400).
	ErrInvalidFields = errors.New("invalid fields")

	// ErrServer indicates any other non-2xx backend response.
	ErrServer = errors.New("server error")

	// ErrAlreadyExists indicates a uniqueness clash detected before submission (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)
