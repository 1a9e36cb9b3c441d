package booking

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the booking service.
var (
	ErrVoyageNotFound            = errors.New("voyage not found")
	ErrReservationNotFound       = errors.New("reservation not found")
	ErrForbidden                 = errors.New("forbidden")
	ErrVoyageInactive            = errors.New("voyage is not available for reservation")
	ErrCapacityExceeded          = errors.New("not enough places available")
	ErrAlreadyCancelled          = errors.New("reservation is already cancelled")
	ErrReservationStatusConflict = errors.New("reservation status changed concurrently")
	ErrInvalidStatusTransition   = errors.New("invalid reservation status transition")
	ErrInvalidPaymentTransition  = errors.New("invalid payment status transition")
	ErrInvalidVoyageID           = errors.New("invalid voyage id")
	ErrInvalidReservationID      = errors.New("invalid reservation id")
	ErrInvalidUserID             = errors.New("invalid user id")
	ErrInvalidRole               = errors.New("invalid role")
	ErrInvalidPartySize          = errors.New("invalid party size")
	ErrInvalidReservationStatus  = errors.New("invalid reservation status")
	ErrInvalidPaymentStatus      = errors.New("invalid payment status")
	ErrInvalidVoyageStatus       = errors.New("invalid voyage status")
	ErrInvalidVoyage             = errors.New("invalid voyage")
	ErrInvalidCapacity           = errors.New("invalid capacity")
	ErrInvalidServiceConfig      = errors.New("invalid service config")
)

// ErrorKind is the caller-facing classification of a failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindVoyageInactive   ErrorKind = "voyage_inactive"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindAlreadyCancelled ErrorKind = "already_cancelled"
	KindValidationFailed ErrorKind = "validation_failed"
	KindInternal         ErrorKind = "internal"
)

var validationErrors = []error{
	ErrReservationStatusConflict,
	ErrInvalidStatusTransition,
	ErrInvalidPaymentTransition,
	ErrInvalidVoyageID,
	ErrInvalidReservationID,
	ErrInvalidUserID,
	ErrInvalidRole,
	ErrInvalidPartySize,
	ErrInvalidReservationStatus,
	ErrInvalidPaymentStatus,
	ErrInvalidVoyageStatus,
	ErrInvalidVoyage,
	ErrInvalidCapacity,
}

// KindOf classifies err. Anything not recognized is internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVoyageNotFound), errors.Is(err, ErrReservationNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrVoyageInactive):
		return KindVoyageInactive
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrAlreadyCancelled):
		return KindAlreadyCancelled
	}
	for _, validationError := range validationErrors {
		if errors.Is(err, validationError) {
			return KindValidationFailed
		}
	}
	return KindInternal
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
