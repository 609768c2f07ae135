// Package cberrors models CodeBatch's error kinds as a single
// typed error carrying a stable code, a human message, optional remediation
// hints, and structured details for the CLI's machine-readable envelope.
package cberrors

import (
	"errors"
	"fmt"
)

// Code is a stable error kind identifier, stable across schema versions.
type Code string

const (
	CodeStoreNotFound      Code = "STORE_NOT_FOUND"
	CodeStoreInvalid       Code = "STORE_INVALID"
	CodeSnapshotNotFound   Code = "SNAPSHOT_NOT_FOUND"
	CodeBatchNotFound      Code = "BATCH_NOT_FOUND"
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeShardNotFound      Code = "SHARD_NOT_FOUND"
	CodePathCollision      Code = "PATH_COLLISION"
	CodeCASCorrupt         Code = "CAS_CORRUPT"
	CodeDepsUnsatisfied    Code = "DEPS_UNSATISFIED"
	CodeExecutorFailed     Code = "EXECUTOR_FAILED"
	CodeCacheStale         Code = "CACHE_STALE"
	CodeSchemaError        Code = "SCHEMA_ERROR"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is CodeBatch's structured error envelope.
type Error struct {
	Code        Code
	Message     string
	Hints       []string
	Details     map[string]any
	Recoverable bool
	cause       error
}

// New creates an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error that wraps an underlying cause, preserving it for
// errors.Is/errors.As and %w-style unwrapping.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithHint appends a remediation hint and returns the receiver for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hints = append(e.Hints, hint)
	return e
}

// WithDetail sets a structured detail field and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the Code of err if it is (or wraps) a *Error, or
// CodeInternal otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ExitCode maps a Code to the CLI's process exit code contract.
func ExitCode(code Code) int {
	switch code {
	case CodeStoreNotFound, CodeStoreInvalid, CodeInvalidArgument:
		return 2
	case CodeInternal:
		return 3
	default:
		return 1
	}
}

// Envelope is the machine-readable error shape the CLI emits with --json.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ToEnvelope converts err into the structured envelope shape, synthesizing
// a generic INTERNAL_ERROR envelope if err is not a *Error.
func ToEnvelope(err error) Envelope {
	var e *Error
	if errors.As(err, &e) {
		return Envelope{Error: EnvelopeBody{
			Code: e.Code, Message: e.Message, Hints: e.Hints, Details: e.Details,
		}}
	}
	return Envelope{Error: EnvelopeBody{Code: CodeInternal, Message: err.Error()}}
}
