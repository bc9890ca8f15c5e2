// Package apperr defines the typed errors shared by every module.
// Handlers render these to the user; anything else is reported as a
// generic failure and logged.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodePermission Code = "PERMISSION"
	CodeState      Code = "STATE"
	CodeNotFound   Code = "NOT_FOUND"
	CodeVoice      Code = "VOICE"
	CodeExternal   Code = "EXTERNAL"
)

// Error carries a code for dispatch and a message fit to show the user.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// UserMessage is what interaction handlers put in the reply embed.
func (e *Error) UserMessage() string { return e.Message }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause that is logged but never shown to the user.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

func Validation(message string) *Error  { return New(CodeValidation, message) }
func Permission(message string) *Error  { return New(CodePermission, message) }
func State(message string) *Error       { return New(CodeState, message) }
func NotFound(message string) *Error    { return New(CodeNotFound, message) }
func Voice(message string) *Error       { return New(CodeVoice, message) }

func Validationf(format string, args ...any) *Error { return Newf(CodeValidation, format, args...) }
func Statef(format string, args ...any) *Error      { return Newf(CodeState, format, args...) }
func NotFoundf(format string, args ...any) *Error   { return Newf(CodeNotFound, format, args...) }

// External wraps a collaborator failure (store, resolver, Discord REST).
func External(err error, message string) *Error {
	return Wrap(err, CodeExternal, message)
}

// CodeOf returns the code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }
func IsPermission(err error) bool { return CodeOf(err) == CodePermission }
func IsState(err error) bool      { return CodeOf(err) == CodeState }
func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsVoice(err error) bool      { return CodeOf(err) == CodeVoice }
func IsExternal(err error) bool   { return CodeOf(err) == CodeExternal }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
