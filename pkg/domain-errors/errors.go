// Package domainerrors carries coded errors from services to the transport
// layer. Services return these (usually wrapping an infrastructure error) and
// httputil.WriteError maps the code to a status and a client-safe message.
package domainerrors

import "errors"

// Code classifies an error for the caller. The string value is the label
// written to the "error" field of HTTP error bodies.
type Code string

const (
	// CodeValidation reports bad caller input (400).
	CodeValidation Code = "validation_error"
	// CodeBadRequest reports an unreadable request (400).
	CodeBadRequest Code = "bad_request"
	// CodeGeneration reports an oracle failure or unusable oracle output (500).
	CodeGeneration Code = "generation_failed"
	// CodeStorage reports a failed record store operation (500).
	CodeStorage Code = "storage_error"
	// CodeNotFound reports an unknown route or resource (404).
	CodeNotFound Code = "not_found"
	// CodeInternal reports anything unexpected (500).
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err still yields an error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the outermost domain error, without the
// wrapped cause. Unknown errors yield an empty string.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
