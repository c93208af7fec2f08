package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNoTenant        = errors.New("no organization selected")
	ErrValidation      = errors.New("validation failed")

	ErrBookingNotFound     = errors.New("booking not found")
	ErrDriverNotFound      = errors.New("driver not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrPaymentLinkNotFound = errors.New("payment link not found")
	ErrInvalidTransition   = errors.New("invalid status transition")

	ErrNoValidBookings    = errors.New("no valid bookings found")
	ErrIncompleteBookings = errors.New("bookings are not completed")
	ErrAlreadyInvoiced    = errors.New("bookings are already invoiced")

	ErrStateNotFound  = errors.New("authorization state not found")
	ErrStateUsed      = errors.New("authorization state already used")
	ErrStateExpired   = errors.New("authorization state expired")
	ErrStateMismatch  = errors.New("authorization state belongs to another session")
	ErrNotConnected   = errors.New("accounting system not connected")
	ErrReauthRequired = errors.New("accounting connection expired, reconnect required")

	ErrPaymentAccountMissing  = errors.New("payment account not set up")
	ErrPaymentAccountNotReady = errors.New("payment account cannot accept charges yet")

	// ErrProvider marks a failed call to an external provider.
	ErrProvider = errors.New("external provider request failed")
)

// CountError names how many bookings tripped a batch precondition.
type CountError struct {
	Err   error
	Count int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("%s: %d booking(s)", e.Err.Error(), e.Count)
}

func (e *CountError) Unwrap() error {
	return e.Err
}

func validationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

func providerError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}
