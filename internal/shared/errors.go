// Package shared holds the error taxonomy and write-result values used by the
// user directory and the survey store. Callers match errors with errors.Is.
package shared

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid identifier")

	// Input errors.
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidVote  = fmt.Errorf("%w: vote must be \"yes\" or \"no\"", ErrInvalidInput)

	// Access errors.
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden access")
)
