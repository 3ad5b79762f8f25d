package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrNoActiveSession  = errors.New("no active session")
	ErrDaemonNotRunning = errors.New("tracker daemon is not running")
	ErrRuntimeStopped   = errors.New("tracker runtime is not running")
)
