package domain

import "errors"

// Sentinel errors for the application. ErrUniqueViolation is the typed
// classification the store layer attaches to duplicate-key failures so that
// callers branch on error kind instead of matching error text.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("resource already exists")
	ErrSelfReference   = errors.New("cannot perform this action on yourself")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrInternal        = errors.New("internal server error")
)
