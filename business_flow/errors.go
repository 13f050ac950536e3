// Package businessflow contains the core business logic and use cases of the document workflow engine
package businessflow

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific business error below matches exactly one of these with errors.Is,
// except ErrConcurrentUpdate which is both a conflict and an invalid state.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// kindError is a sentinel that belongs to one or more error kinds
type kindError struct {
	msg   string
	kinds []error
}

func (e *kindError) Error() string   { return e.msg }
func (e *kindError) Unwrap() []error { return e.kinds }

func newKindError(msg string, kinds ...error) error {
	return &kindError{msg: msg, kinds: kinds}
}

// Business flow error constants
var (
	// Lookup errors
	ErrClientNotFound           = newKindError("client not found", ErrNotFound)
	ErrDocumentNotFound         = newKindError("document not found", ErrNotFound)
	ErrTrackingNotFound         = newKindError("tracking link not found", ErrNotFound)
	ErrSignatureRequestNotFound = newKindError("signature request not found", ErrNotFound)

	// Document validation errors
	ErrEmptyLineSet           = newKindError("document must have at least one line", ErrValidation)
	ErrInvalidLine            = newKindError("invalid document line", ErrValidation)
	ErrInvalidDocumentType    = newKindError("invalid document type", ErrValidation)
	ErrInvalidDocumentStatus  = newKindError("invalid document status", ErrValidation)
	ErrTotalSignMismatch      = newKindError("document total sign does not match document type", ErrValidation)
	ErrValidityDateNotAllowed = newKindError("validity date is only allowed on quotes", ErrValidation)
	ErrInvalidDeposit         = newKindError("deposit percentage must be greater than 0 and at most 100", ErrValidation)
	ErrInvalidPaymentMethod   = newKindError("invalid payment method", ErrValidation)
	ErrInvalidPaymentTerms    = newKindError("payment terms must not be negative", ErrValidation)
	ErrDueDateBeforeDate      = newKindError("due date cannot be before document date", ErrValidation)

	// Signature validation errors
	ErrInvalidSignerEmail    = newKindError("signer email is missing or malformed", ErrValidation)
	ErrSignerNameRequired    = newKindError("signer name is required", ErrValidation)
	ErrInvalidSignerRole     = newKindError("invalid signer role", ErrValidation)
	ErrInvalidOutcome        = newKindError("signature outcome must be signed or declined", ErrValidation)
	ErrSignatureDataRequired = newKindError("signature data is required to sign", ErrValidation)

	// State errors
	ErrTransitionNotAllowed = newKindError("status transition not allowed", ErrInvalidState)
	ErrDocumentNotMutable   = newKindError("document can no longer be edited", ErrInvalidState)
	ErrDocumentClosed       = newKindError("document is closed", ErrInvalidState)
	ErrSignatureNotPending  = newKindError("signature request is no longer pending", ErrInvalidState)
	ErrSignatureExpired     = newKindError("signature request has expired", ErrInvalidState)

	// Concurrency errors
	ErrConcurrentUpdate = newKindError("concurrent update detected", ErrConflict, ErrInvalidState)
	ErrDuplicateNumber  = newKindError("document number already allocated", ErrConflict)
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

func IsTrackingNotFound(err error) bool {
	return errors.Is(err, ErrTrackingNotFound)
}

func IsSignatureNotPending(err error) bool {
	return errors.Is(err, ErrSignatureNotPending)
}

func IsConcurrentUpdate(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}

// ErrorCode returns the machine code of the outermost BusinessError in err's chain
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
