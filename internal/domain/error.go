package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Streaming / retrieval errors
	ErrNotReady           = errors.New("retrieval not ready: no collection loaded")
	ErrBackendUnavailable = errors.New("model backend unavailable")
	ErrRetrievalFailure   = errors.New("retrieval failed")
	ErrChatBusy           = errors.New("chat already has a turn in flight")
	ErrStreamAborted      = errors.New("stream aborted before completion")

	// Auth errors
	ErrUnauthorized      = errors.New("invalid credentials")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
