package exception

import "errors"

var (
	ErrCircuitOpen        = errors.New("breaker: circuit open")
	ErrUnknownModule      = errors.New("breaker: unknown module")
	ErrProbeNotConfigured = errors.New("breaker: module has no health endpoint")
	ErrProbeBadStatus     = errors.New("breaker: health probe returned non-2xx status")
)
