package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrForbidden       = errors.New("invalid credentials")
	ErrUnauthorized    = errors.New("missing credentials")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrDuplicateTurn   = errors.New("turn already processed")
	ErrSessionBusy     = errors.New("session is processing another turn")
)

// UpstreamError marks a failure of the completion provider so the HTTP layer
// can report it distinctly from record-store failures.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion provider: http %d: %s", e.Status, e.Detail)
	}
	return "completion provider: " + e.Detail
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
