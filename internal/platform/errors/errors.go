package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindProvider   Kind = "provider"
	KindTimeout    Kind = "timeout"
	KindExhaustion Kind = "exhaustion"
	KindEngine     Kind = "engine"
	KindConfig     Kind = "config"
	KindStorage    Kind = "storage"
	KindTransport  Kind = "transport"
	KindBootstrap  Kind = "bootstrap"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap annotates err with kind and operation context. A typed cause stays in
// the chain under its own kind; IsKind matches every kind along the chain.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
// A timeout is a provider failure subtype, so timeout errors also satisfy
// KindProvider.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if typed, ok := err.(*Error); ok {
			if typed.Kind == kind {
				return true
			}
			if kind == KindProvider && typed.Kind == KindTimeout {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}
