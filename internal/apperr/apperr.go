// Package apperr defines the error taxonomy the handlers translate into
// HTTP statuses. Row-level import problems never use these; they surface as
// ERROR status on the row instead.
package apperr

import "errors"

var (
	// ErrNotFound covers both nonexistent resources and resources owned by
	// another user; the two are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks operations rejected by current state, such as
	// deleting a committed batch.
	ErrConflict = errors.New("conflict")

	// ErrValidation marks bad input rejected before any work happens, such
	// as an invalid regex pattern or a CSV missing a required column.
	ErrValidation = errors.New("validation")
)
