package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidCurrency = errors.New("invalid currency")

	// Checkout errors
	ErrCurrencyUnsupported = errors.New("currency not supported by gateway")

	// Refund errors
	ErrIllegalAmount        = errors.New("refund amount must equal order total")
	ErrAlreadyRefunded      = errors.New("order has already been refunded")
	ErrTransactionIDMissing = errors.New("gateway transaction id not found")
	ErrRefundNotConfirmed   = errors.New("refund not confirmed by gateway")

	// Gateway errors
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrProviderError      = errors.New("payment gateway rejected the request")
	ErrGatewayNotFound    = errors.New("payment gateway not found")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire order lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
