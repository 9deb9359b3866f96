package booking

import (
	"errors"
	"fmt"
)

// Error kinds returned by the booking service. Callers match them with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrForbiddenTransition = errors.New("forbidden transition")
	ErrAdmissionRejected   = errors.New("admission rejected")
	ErrLocked              = errors.New("locked")
	ErrRedemptionLimit     = errors.New("redemption limit")

	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// Specific errors, each wrapping one of the kinds above.
var (
	ErrInvalidUserID            = fmt.Errorf("%w: invalid user id", ErrValidation)
	ErrInvalidAppointmentID     = fmt.Errorf("%w: invalid appointment id", ErrValidation)
	ErrInvalidInvoiceID         = fmt.Errorf("%w: invalid invoice id", ErrValidation)
	ErrInvalidBikeID            = fmt.Errorf("%w: invalid bike id", ErrValidation)
	ErrInvalidGarageID          = fmt.Errorf("%w: invalid garage id", ErrValidation)
	ErrInvalidAppointmentStatus = fmt.Errorf("%w: invalid appointment status", ErrValidation)
	ErrInvalidActorRole         = fmt.Errorf("%w: invalid actor role", ErrValidation)
	ErrInvalidInvoiceStatus     = fmt.Errorf("%w: invalid invoice status", ErrValidation)
	ErrInvalidRewardType        = fmt.Errorf("%w: invalid reward type", ErrValidation)
	ErrInvalidOdometer          = fmt.Errorf("%w: odometer reading must be positive", ErrValidation)
	ErrInvalidPreferredDate     = fmt.Errorf("%w: preferred date must be YYYY-MM-DD", ErrValidation)
	ErrInvalidTimeSlot          = fmt.Errorf("%w: time slot must be HH:MM", ErrValidation)
	ErrInvalidPrice             = fmt.Errorf("%w: price must be a non-negative amount in whole cents", ErrValidation)
	ErrInvalidVATRate           = fmt.Errorf("%w: vat rate must be a non-negative percentage with at most two decimals", ErrValidation)
	ErrNoInvoiceItems           = fmt.Errorf("%w: at least one valid invoice item is required", ErrValidation)
	ErrNonPositiveTotal         = fmt.Errorf("%w: invoice total must be greater than zero", ErrValidation)
	ErrQuotedPriceMissing       = fmt.Errorf("%w: appointment has no quoted price", ErrValidation)
	ErrInvalidInitialStatus     = fmt.Errorf("%w: invalid initial invoice status", ErrValidation)
	ErrCancellationReason       = fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	ErrRescheduleTarget         = fmt.Errorf("%w: reschedule target must be a valid timestamp", ErrValidation)
	ErrInvalidRedeemPoints      = fmt.Errorf("%w: redeem points must be a non-negative integer", ErrValidation)

	ErrAppointmentNotFound = fmt.Errorf("%w: appointment", ErrNotFound)
	ErrInvoiceNotFound     = fmt.Errorf("%w: invoice", ErrNotFound)
	ErrBikeNotFound        = fmt.Errorf("%w: bike", ErrNotFound)
	ErrGarageNotFound      = fmt.Errorf("%w: garage", ErrNotFound)
	ErrNotAppointmentParty = fmt.Errorf("%w: caller is not a party to the appointment", ErrNotFound)

	ErrAlreadyCancelled   = fmt.Errorf("%w: appointment already cancelled", ErrInvalidTransition)
	ErrConcurrentUpdate   = fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	ErrInvoiceNotIssued   = fmt.Errorf("%w: invoice is not awaiting payment", ErrInvalidTransition)
	ErrInvoiceAlreadyPaid = fmt.Errorf("%w: invoice already paid", ErrInvalidTransition)

	ErrPastDate                = fmt.Errorf("%w: preferred date is in the past", ErrAdmissionRejected)
	ErrPastTimeSlot            = fmt.Errorf("%w: time slot is not in the future", ErrAdmissionRejected)
	ErrActiveAppointmentExists = fmt.Errorf("%w: customer already has an active appointment", ErrAdmissionRejected)
	ErrSlotFull                = fmt.Errorf("%w: time slot is fully booked", ErrAdmissionRejected)

	ErrPriceLocked     = fmt.Errorf("%w: quoted price is locked by the invoice", ErrLocked)
	ErrInvoiceExists   = fmt.Errorf("%w: invoice already exists for the appointment", ErrLocked)
	ErrInvoiceNotDraft = fmt.Errorf("%w: only draft invoices can be edited", ErrLocked)

	ErrBelowMinimumRedemption = fmt.Errorf("%w: below minimum redemption", ErrRedemptionLimit)
	ErrAboveRedeemableCap     = fmt.Errorf("%w: above redeemable points", ErrRedemptionLimit)
)

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

// IsDomainError reports whether err carries one of the booking error kinds.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrValidation,
		ErrNotFound,
		ErrInvalidTransition,
		ErrForbiddenTransition,
		ErrAdmissionRejected,
		ErrLocked,
		ErrRedemptionLimit,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
