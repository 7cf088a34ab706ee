package graphql

import (
	"errors"
	"fmt"
)

// ErrorKind classifies transport failures so callers never sniff messages
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnauthorized
	KindNotFound
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	}
	return "other"
}

// Error is the transport error returned by an Executor
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("graphql %s error: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("graphql %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusText is a short human-readable explanation suitable for a status line
func (e *Error) StatusText() string {
	switch e.Kind {
	case KindUnauthorized:
		return "Authentication failed. Please check your API key."
	case KindNotFound:
		return "Account not found. Please check your credentials."
	case KindNetwork:
		return "Network error. Please check your internet connection."
	}
	return "Error fetching data: " + e.Message
}

// KindOf returns the kind of the first *Error in err's chain, or KindOther
func KindOf(err error) ErrorKind {
	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr.Kind
	}
	return KindOther
}

// IsKind reports whether err wraps an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var gqlErr *Error
	return errors.As(err, &gqlErr) && gqlErr.Kind == kind
}

// StatusText returns the status line text for any error
func StatusText(err error) string {
	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr.StatusText()
	}
	return "Error fetching data: " + err.Error()
}
