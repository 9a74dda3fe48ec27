// Package service implements the domain services layer (§4.D): a thin layer
// mapping DAL error sub-codes onto a service-level tagged result with a
// human message, matching the teacher's QueryResult-as-struct philosophy
// (spec.md §9) rather than panics or (T, bool) pairs.
package service

import (
	"errors"

	"github.com/chatterbox/chatserver/internal/dal"
)

// ErrorCode is the service-boundary taxonomy (§7).
type ErrorCode int

const (
	CodeSuccess ErrorCode = iota
	CodeBadRequest
	CodeUnauthorized
	CodeForbidden
	CodeNotFound
	CodeConflict
	CodeInternalError
)

func (c ErrorCode) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeBadRequest:
		return "BAD_REQUEST"
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodeForbidden:
		return "FORBIDDEN"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// Result[T] is the tagged union every service call returns: exactly one of
// a success payload or an error code + message is meaningful.
type Result[T any] struct {
	Code    ErrorCode
	Value   T
	Message string
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Code: CodeSuccess, Value: v}
}

func Fail[T any](code ErrorCode, message string) Result[T] {
	return Result[T]{Code: code, Message: message}
}

func (r Result[T]) OK() bool { return r.Code == CodeSuccess }

// translateDALError maps a DAL sentinel/wrapped error onto the matching
// service ErrorCode and a user-facing message (§4.D's per-operation rules).
func translateDALError(err error, notFoundMsg string) (ErrorCode, string) {
	switch {
	case err == nil:
		return CodeSuccess, ""
	case errors.Is(err, dal.ErrEmailTaken):
		return CodeConflict, "email already in use"
	case errors.Is(err, dal.ErrNameExhausted):
		return CodeConflict, "name not available"
	case errors.Is(err, dal.ErrWrongPassword):
		return CodeUnauthorized, "invalid credentials"
	case errors.Is(err, dal.ErrNotFound):
		return CodeNotFound, notFoundMsg
	default:
		return CodeInternalError, "internal error"
	}
}
