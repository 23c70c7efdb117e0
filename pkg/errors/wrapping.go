package errors

import (
	"fmt"
)

// Wrap wraps an error with additional context while preserving its category.
// Uncategorised errors become PermanentErrors.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsTemporary(err):
		return NewTemporary(msg, err)
	case IsNotFound(err):
		var nfe *NotFoundError
		As(err, &nfe)
		return NewNotFoundWithCause(nfe.resource, nfe.id, err)
	case IsInvalidInput(err):
		var iie *InvalidInputError
		As(err, &iie)
		return NewInvalidInputWithCause(iie.field, msg, err)
	default:
		return NewPermanent(msg, err)
	}
}

// Wrapf wraps an error with a formatted message while preserving its category.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
