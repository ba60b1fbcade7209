package cutting

import (
	"errors"
	"fmt"

	"cutting-tracker/internal/storage"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidState
	KindInvalidTransition
	KindBalance
	KindStorage
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindBalance:
		return "balance_error"
	case KindStorage:
		return "storage_error"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrBalance           = &Error{Kind: KindBalance}
	ErrStorage           = &Error{Kind: KindStorage}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
	// Report is set for balance errors.
	Report *BalanceReport
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func stateErr(op string, kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(op string, role, action string) error {
	return &Error{Kind: KindForbidden, Op: op, Msg: fmt.Sprintf("role %q may not %s", role, action)}
}

// storageErr classifies an error coming back from the repository. Engine
// errors raised inside a transaction pass through untouched.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Msg: "record not found", Err: err}
	}
	return &Error{Kind: KindStorage, Op: op, Msg: "storage failure", Err: err}
}
