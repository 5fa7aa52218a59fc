package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptProfile blocks actions on a profile whose record failed validation.
	ErrCorruptProfile = errors.New("profile is corrupt and must be fixed first")
	// ErrStructuralCorruption marks a stored record that failed to parse or validate.
	// It never leaves the store layer; reads turn it into StatusCorrupt.
	ErrStructuralCorruption = errors.New("structural corruption")
)

// ValidationError is a caller mistake; resubmitting corrected input fixes it.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

func ErrValidation(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

type UnknownActionError struct {
	ID         string
	Suggestion string
}

func (e *UnknownActionError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown action id %q (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("unknown action id %q", e.ID)
}

// IsClientError reports whether err belongs to the caller-facing taxonomy
// (validation, unknown action, corrupt profile) rather than an I/O failure.
func IsClientError(err error) bool {
	var validation ValidationError
	var unknown *UnknownActionError
	return errors.As(err, &validation) || errors.As(err, &unknown) || errors.Is(err, ErrCorruptProfile)
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructuralCorruption, fmt.Sprintf(format, args...))
}
