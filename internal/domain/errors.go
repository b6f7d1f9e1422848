package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidCommand ErrorKind = "InvalidCommandError"
	KindLimit          ErrorKind = "LimitError"
	KindLocked         ErrorKind = "LockedError"
	KindUnauthorized   ErrorKind = "UnauthorizedError"
	KindDataNotFound   ErrorKind = "DataNotFoundError"
	KindUnknownCommand ErrorKind = "UnknownCommandError"
	KindGeneric        ErrorKind = "Error"
)

// Error is a handled failure that is reported back to the client
// as [kind, message] without closing the connection.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidCommand = &Error{Kind: KindInvalidCommand}
	ErrLimit          = &Error{Kind: KindLimit}
	ErrLocked         = &Error{Kind: KindLocked}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrDataNotFound   = &Error{Kind: KindDataNotFound}
	ErrUnknownCommand = &Error{Kind: KindUnknownCommand}
)

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err; unhandled errors are KindGeneric.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}
