package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrAlreadyRevoked = errors.New("already revoked")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnavailable    = errors.New("unavailable")
)
