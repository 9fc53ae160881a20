package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures of a capture job so callers can decide on a
// status code without inspecting provider specifics.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindNotFound           ErrorKind = "NotFound"
	KindProviderRejected   ErrorKind = "ProviderRejected"
	KindProviderFailed     ErrorKind = "ProviderFailed"
	KindTimeout            ErrorKind = "Timeout"
	KindNetworkError       ErrorKind = "NetworkError"
	KindPersistenceError   ErrorKind = "PersistenceError"
	KindPartialPersistence ErrorKind = "PartialPersistence"
	KindInternal           ErrorKind = "Internal"
)

var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrProviderRejected   = &Error{Kind: KindProviderRejected}
	ErrProviderFailed     = &Error{Kind: KindProviderFailed}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrNetwork            = &Error{Kind: KindNetworkError}
	ErrPersistence        = &Error{Kind: KindPersistenceError}
	ErrPartialPersistence = &Error{Kind: KindPartialPersistence}
)

// Error is the failure value returned by adapters, the pipeline and the
// persistence layer. Code and Provider are optional diagnostics.
type Error struct {
	Kind     ErrorKind
	Provider string
	Code     int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so errors.Is(err, ErrTimeout) works for any timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Detail renders the short user-facing message plus provider diagnostics.
func (e *Error) Detail() string {
	msg := userMessages[e.Kind]
	if msg == "" {
		msg = "unexpected error"
	}
	if e.Message == "" {
		return msg
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", msg, e.Message, e.Code)
	}
	return msg + ": " + e.Message
}

var userMessages = map[ErrorKind]string{
	KindInvalidInput:       "invalid image",
	KindNotFound:           "effect not available",
	KindProviderRejected:   "effect provider rejected the image",
	KindProviderFailed:     "effect provider failed",
	KindTimeout:            "effect took too long",
	KindNetworkError:       "effect provider unreachable",
	KindPersistenceError:   "could not save photo",
	KindPartialPersistence: "photo uploaded but not recorded",
	KindInternal:           "unexpected error",
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from err. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns err as *Error, wrapping unknown errors as Internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Err: err}
}
