package services

import "errors"

// Sentinel errors used by controllers to pick an HTTP status. Services wrap
// these with fmt.Errorf("%w: ...") so errors.Is keeps working.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)
