// Package vectorerr defines the typed error taxonomy shared by the vector
// engine: the HNSW graph, the persistence adapter, the shard router, and
// the HTTP surface all return *Error rather than ad-hoc sentinels so a
// caller at any layer can map a failure to the right status code.
package vectorerr

import (
	"errors"
	"fmt"
)

// Kind identifies which row of the error taxonomy a failure belongs to.
type Kind string

const (
	DimensionMismatch Kind = "DimensionMismatch"
	NotFound          Kind = "NotFound"
	IndexNotFound     Kind = "IndexNotFound"
	InvalidInput      Kind = "InvalidInput"
	IndexConflict     Kind = "IndexConflict"
	Serialization     Kind = "Serialization"
	Storage           Kind = "Storage"
	Timeout           Kind = "Timeout"
	RateLimited       Kind = "RateLimited"
	Unauthorized      Kind = "Unauthorized"
	AlreadyExists     Kind = "AlreadyExists"
)

// Error is a typed, wrappable failure. Message is the user-facing text;
// Err, if set, is the underlying cause (kept via errors.Unwrap).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so callers can do errors.Is(err, &Error{Kind: NotFound}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// HTTPStatus maps an error kind to the status code spec.md §7 assigns it.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 500
	}
	switch e.Kind {
	case DimensionMismatch, InvalidInput, IndexConflict, AlreadyExists:
		return 400
	case NotFound, IndexNotFound:
		return 404
	case Timeout:
		return 504
	case RateLimited:
		return 429
	case Unauthorized:
		return 401
	default:
		return 500
	}
}
