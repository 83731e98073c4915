package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the request could not be completed due to a conflict.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets.
type Type int

const (
	// TypeServer represents server-side failures.
	TypeServer Type = iota
	// TypeBusiness represents business rule violations.
	TypeBusiness
	// TypeValidation represents input validation failures.
	TypeValidation
)

// String returns the string representation of the error type.
func (t Type) String() string {
	switch t {
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier mapped to an HTTP status code.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeInvalidFormat indicates invalid request format.
	CodeInvalidFormat
	// CodeInvalidInput indicates invalid request input.
	CodeInvalidInput
	// CodeNotFound indicates a missing resource.
	CodeNotFound
	// CodeConflict indicates a conflict, such as a cycle that is already running.
	CodeConflict
	// CodeUnauthorized indicates authentication failure.
	CodeUnauthorized
	// CodeForbidden indicates authorization failure.
	CodeForbidden
	// CodeTimeout indicates a timeout.
	CodeTimeout
	// CodeUnavailable indicates a dependency could not be reached.
	CodeUnavailable
)

var codeStatus = map[Code]int{
	CodeInternal:      http.StatusInternalServerError,
	CodeInvalidFormat: http.StatusBadRequest,
	CodeInvalidInput:  http.StatusUnprocessableEntity,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
	CodeTimeout:       http.StatusGatewayTimeout,
	CodeUnavailable:   http.StatusServiceUnavailable,
}

var codeName = map[Code]string{
	CodeInternal:      "ERROR_CODE_INTERNAL",
	CodeInvalidFormat: "ERROR_CODE_INVALID_FORMAT",
	CodeInvalidInput:  "ERROR_CODE_INVALID_INPUT",
	CodeNotFound:      "ERROR_CODE_NOT_FOUND",
	CodeConflict:      "ERROR_CODE_CONFLICT",
	CodeUnauthorized:  "ERROR_CODE_UNAUTHORIZED",
	CodeForbidden:     "ERROR_CODE_FORBIDDEN",
	CodeTimeout:       "ERROR_CODE_TIMEOUT",
	CodeUnavailable:   "ERROR_CODE_UNAVAILABLE",
}

// String returns the string representation of the error code.
func (c Code) String() string {
	if name, ok := codeName[c]; ok {
		return name
	}
	return codeName[CodeInternal]
}

// Error is the structured error returned by usecases and rendered by the router.
//
// It wraps an optional cause and carries a user-facing message, a type and a code.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.msg != "" {
		return e.msg
	}

	switch e.errType {
	case TypeValidation:
		return "Validation violation"
	case TypeBusiness:
		return "Business rule violation"
	default:
		return "Internal error"
	}
}

// String returns a verbose representation for logs.
func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%s msg=%q cause=%v", e.errType, e.code, e.msg, e.err)
}

// Msg returns the user-facing message.
func (e *Error) Msg() string { return e.msg }

// Type returns the high-level error type.
func (e *Error) Type() Type { return e.errType }

// Code returns the stable error code.
func (e *Error) Code() Code { return e.code }

// Fields returns per-field validation messages, if any.
func (e *Error) Fields() map[string]string { return e.fields }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	if status, ok := codeStatus[e.code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code Code) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.code == code
}

func newError(err error, msg string, et Type, code Code) error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error wrapping err.
func NewServer(err error) error {
	return newError(err, "Internal server error", TypeServer, CodeInternal)
}

// NewUnavailable creates a server-type error for an unreachable dependency.
func NewUnavailable(msg string, err error) error {
	return newError(err, msg, TypeServer, CodeUnavailable)
}

// NewBusiness creates a business-type error with the message and code.
func NewBusiness(msg string, code Code) error {
	return newError(nil, msg, TypeBusiness, code)
}

// NewInvalidInput creates a validation error. When err is nil the kv pairs
// become field messages.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return newError(err, "Validation error", TypeValidation, CodeInvalidInput)
	}
	if len(kv)%2 != 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat creates a validation error for a malformed request.
func NewInvalidFormat(msgs ...string) error {
	if len(msgs) == 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}
	return newError(nil, msgs[0], TypeValidation, CodeInvalidFormat)
}
