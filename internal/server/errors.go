package server

import "errors"

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrInvalidConfig        = errors.New("invalid server configuration")
	ErrListenerFailed       = errors.New("failed to create listener")
	ErrInvalidBody          = errors.New("invalid request body")
	ErrTestException        = errors.New("Test exception")
)
