package services

import (
	"errors"
	"fmt"
	"strings"

	"mesoprep/internal/history"
)

var (
	// ErrFormat marks a sync trace that cannot be parsed as the expected
	// binary layout.
	ErrFormat = errors.New("sync format error")
	// ErrMissingTrigger marks a sync trace with no rising or falling edge on
	// the trigger line.
	ErrMissingTrigger = errors.New("missing trigger edge")
	// ErrAmbiguousTrigger marks a sync trace (or sync file set) where more
	// than one candidate edge exists and the pipeline refuses to guess.
	ErrAmbiguousTrigger = errors.New("ambiguous trigger edge")
	// ErrIdentityNotFound marks a session directory without a sidecar
	// identity file.
	ErrIdentityNotFound = errors.New("identity not found")

	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the run status the history store
// should record after a session fails.
func FailureStatus(err error) history.Status {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrIdentityNotFound):
		return history.StatusRejected
	default:
		return history.StatusFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "session failure"
	}
	return strings.Join(parts, ": ")
}
