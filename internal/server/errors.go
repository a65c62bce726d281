package server

import "errors"

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrUnauthorized         = errors.New("unauthorized")
)
