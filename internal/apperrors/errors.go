package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrInvalidState indicates that a command is not legal for the entity's
// current status (e.g. posting an already-posted entry, locking an open period).
var ErrInvalidState = errors.New("invalid state for operation")

// ErrConflict indicates a collision with existing state, such as reusing an
// entry ID or appending events at a stale stream version.
var ErrConflict = errors.New("conflict with existing resource")

// ErrForbidden indicates the caller is not allowed to perform the operation.
var ErrForbidden = errors.New("operation not permitted")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")
