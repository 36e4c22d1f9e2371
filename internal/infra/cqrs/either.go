package cqrs

import (
	"fmt"
	"net/http"
)

// DomainError is an error a handler declares as part of its result, as
// opposed to an infrastructure failure.
type DomainError struct {
	Code    int
	Message string
	Target  string
	Details []*DomainError
}

func (e *DomainError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s", e.Target, e.Message)
	}
	return e.Message
}

func NewDomainError(code int, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

func BadRequest(msg string) *DomainError {
	return &DomainError{Code: http.StatusBadRequest, Message: msg}
}

func NotFound(target, msg string) *DomainError {
	return &DomainError{Code: http.StatusNotFound, Message: msg, Target: target}
}

// WithDetail appends a nested error and returns e.
func (e *DomainError) WithDetail(d *DomainError) *DomainError {
	e.Details = append(e.Details, d)
	return e
}

// Either holds a DomainError (left) or a value (right).
type Either struct {
	value any
	err   *DomainError
}

func Left(err *DomainError) Either { return Either{err: err} }
func Right(v any) Either           { return Either{value: v} }

func (e Either) IsLeft() bool      { return e.err != nil }
func (e Either) IsRight() bool     { return e.err == nil }
func (e Either) Value() any        { return e.value }
func (e Either) Err() *DomainError { return e.err }

// Fold applies left or right depending on which side is set.
func (e Either) Fold(left func(*DomainError) any, right func(any) any) any {
	if e.IsLeft() {
		return left(e.err)
	}
	return right(e.value)
}

func (e Either) String() string {
	if e.IsLeft() {
		return fmt.Sprintf("Left(%v)", e.err)
	}
	return fmt.Sprintf("Right(%v)", e.value)
}

// asEither wraps plain values as Right.
func asEither(v any) Either {
	switch x := v.(type) {
	case Either:
		return x
	case *Either:
		if x != nil {
			return *x
		}
	}
	return Right(v)
}
