// Package errors defines the coded domain errors returned by every service.
package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeMaterialNotFound      Code = "MATERIAL_NOT_FOUND"
	CodeTicketNotFound        Code = "TICKET_NOT_FOUND"
	CodePriceVersionNotFound  Code = "PRICE_VERSION_NOT_FOUND"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodePaymentExceedsBalance Code = "PAYMENT_EXCEEDS_BALANCE"
	CodePaidExceedsTotal      Code = "PAID_EXCEEDS_TOTAL"
	CodeMissingAccount        Code = "MISSING_ACCOUNT"
	CodeDuplicateName         Code = "DUPLICATE_NAME"
	CodeDuplicateKey          Code = "DUPLICATE_KEY"
)

// Class groups codes by how a caller should react to them.
type Class string

const (
	ClassInvalid  Class = "invalid"
	ClassMissing  Class = "missing"
	ClassConflict Class = "conflict"
	// ClassFailure is an infrastructure problem; the same call may succeed later.
	ClassFailure Class = "failure"
)

type Metadata struct {
	Class     Class
	Retryable bool
	Summary   string
}

func meta(class Class, summary string) Metadata {
	return Metadata{Class: class, Retryable: class == ClassFailure, Summary: summary}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:     meta(ClassInvalid, "validation failed"),
	CodeInvalidAmount:  meta(ClassInvalid, "invalid amount"),
	CodeMissingAccount: meta(ClassInvalid, "financial account required"),

	CodeNotFound:             meta(ClassMissing, "resource not found"),
	CodeMaterialNotFound:     meta(ClassMissing, "material not found"),
	CodeTicketNotFound:       meta(ClassMissing, "note not found"),
	CodePriceVersionNotFound: meta(ClassMissing, "price version not found"),

	CodeConflict:              meta(ClassConflict, "conflict detected"),
	CodeStateConflict:         meta(ClassConflict, "state transition disallowed"),
	CodeInvalidTransition:     meta(ClassConflict, "state transition disallowed"),
	CodeIdempotency:           meta(ClassConflict, "idempotency key reused"),
	CodeInsufficientStock:     meta(ClassConflict, "insufficient stock"),
	CodePaymentExceedsBalance: meta(ClassConflict, "payment exceeds outstanding balance"),
	CodePaidExceedsTotal:      meta(ClassConflict, "paid amount exceeds note total"),
	CodeDuplicateName:         meta(ClassConflict, "name already in use"),
	CodeDuplicateKey:          meta(ClassConflict, "key already in use"),

	CodeInternal:   meta(ClassFailure, "internal error"),
	CodeDependency: meta(ClassFailure, "dependency unavailable"),
}

// MetadataFor returns the metadata of code. Unknown codes are internal failures.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with optional structured details and a cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the first coded error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// ClassOf returns the class of the first coded error in err's chain. Uncoded
// errors are failures.
func ClassOf(err error) Class {
	if typed := As(err); typed != nil {
		return MetadataFor(typed.code).Class
	}
	return ClassFailure
}
