package domain

import "errors"

var (
	ErrAccessDenied         = errors.New("access denied")
	ErrAlreadyExists        = errors.New("already exists")
	ErrNotFound             = errors.New("not found")
	ErrIncompleteOperation  = errors.New("operation did not complete")
	ErrInvalidJustification = errors.New("invalid justification")
	ErrInvalidRequest       = errors.New("invalid activation request")
	ErrRateLimited          = errors.New("rate limited")
)

// DeniedError carries a machine-readable code alongside the access-denied
// sentinel so the transport layer can log the kind without leaking it to
// the end user.
type DeniedError struct {
	Code string
	Err  error
}

func (e *DeniedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *DeniedError) Unwrap() error {
	if e == nil || e.Err == nil {
		return ErrAccessDenied
	}
	return e.Err
}

func Denied(code string) *DeniedError {
	return &DeniedError{Code: code, Err: ErrAccessDenied}
}

func IsDeniedError(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
