package queue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad input rejected before any persistence write.
	ErrValidation = errors.New("validation error")
	// ErrStorage marks an unavailable store or a failed write; the entry
	// remains at its last committed state so the operation can be retried.
	ErrStorage = errors.New("storage error")
	// ErrNotFound marks a lookup for a missing id. Delete paths treat it as
	// benign and never propagate it.
	ErrNotFound = errors.New("not found")
	// ErrDelivery marks a network or remote failure during submission. It
	// drives the retry state machine and never escapes the sync controller.
	ErrDelivery = errors.New("delivery error")
)

// Wrap tags an error with one of the sentinel markers above while keeping
// operation context in the message.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "queue failure"
	}
	return strings.Join(parts, ": ")
}
