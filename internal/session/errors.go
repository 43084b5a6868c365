package session

import "errors"

var (
	// ErrAuth is returned when a token is missing, malformed or expired.
	ErrAuth = errors.New("authentication failed")
	// ErrValidation is returned for malformed requests, before any state changes.
	ErrValidation = errors.New("invalid request")
	// ErrModerationTransport marks a classifier that was unreachable,
	// timed out or answered with a non-success status.
	ErrModerationTransport = errors.New("moderation transport error")
	// ErrBanned is the policy rejection for a banned subject going live.
	ErrBanned = errors.New("subject is banned from broadcasting")
	// ErrUnknownConnection is returned when a connection is not registered.
	ErrUnknownConnection = errors.New("unknown connection")
)
