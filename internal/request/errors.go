package request

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMessages indicates a request was rendered before any message was added.
	ErrMissingMessages = errors.New("at least one message is required")

	// ErrInvalidUsage indicates builder state that cannot be rendered.
	ErrInvalidUsage = errors.New("invalid usage")
)

// InvalidUsageError carries the reason a request was rejected before any I/O.
type InvalidUsageError struct {
	Reason string
}

func (e *InvalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage: %s", e.Reason)
}

func (e *InvalidUsageError) Is(target error) bool {
	return target == ErrInvalidUsage
}
