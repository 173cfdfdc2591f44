package classroom

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Classroom operation matches exactly
// one of these with errors.Is, or wraps a storage failure.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStock   = errors.New("insufficient stock")
)

// Error describes a failed operation.
type Error struct {
	Op   string
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationErr(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr(op, entity, id string) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf("%s %q not found", entity, id)}
}
