package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange  = errors.New("invalid start/end range")
	ErrSlotBusy      = errors.New("time window is not available")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrHoldNotFound  = errors.New("hold not found")
	ErrConfiguration = errors.New("missing required configuration")
)

// UpstreamError carries a non-2xx provider response. The provider message is
// kept verbatim for diagnosability.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("calendar provider error (status %d): %s", e.Status, e.Message)
}
