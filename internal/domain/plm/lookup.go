package plm

import (
	"errors"
	"fmt"
)

// Status classifies the outcome of a single PLM call.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LookupResult is the outcome of a PLM call. Exactly one of the three
// shapes holds: Success carries Value, Error carries Err, Empty carries nothing.
type LookupResult[T any] struct {
	Status Status
	Value  T
	Err    error
}

func Success[T any](value T) LookupResult[T] {
	return LookupResult[T]{Status: StatusSuccess, Value: value}
}

// Failure builds an Error result. A nil err is replaced with a generic one.
func Failure[T any](err error) LookupResult[T] {
	if err == nil {
		err = errors.New("plm lookup failed")
	}
	return LookupResult[T]{Status: StatusError, Err: err}
}

func Empty[T any]() LookupResult[T] {
	return LookupResult[T]{Status: StatusEmpty}
}

func (r LookupResult[T]) IsSuccess() bool { return r.Status == StatusSuccess }
func (r LookupResult[T]) IsError() bool   { return r.Status == StatusError }
func (r LookupResult[T]) IsEmpty() bool   { return r.Status == StatusEmpty }

// Map converts a Success value, leaving Error and Empty untouched.
func Map[T, U any](r LookupResult[T], fn func(T) U) LookupResult[U] {
	switch r.Status {
	case StatusSuccess:
		return Success(fn(r.Value))
	case StatusError:
		return Failure[U](r.Err)
	default:
		return Empty[U]()
	}
}
