package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusAssigned   BookingStatus = "ASSIGNED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// bookingTransitions lists the statuses reachable from each status.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusAssigned, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusAssigned, BookingStatusCancelled},
	BookingStatusAssigned:   {BookingStatusPending, BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusAssigned,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BookingPaymentStatus string

const (
	BookingPaymentPending           BookingPaymentStatus = "PENDING"
	BookingPaymentProcessing        BookingPaymentStatus = "PROCESSING"
	BookingPaymentPaid              BookingPaymentStatus = "PAID"
	BookingPaymentFailed            BookingPaymentStatus = "FAILED"
	BookingPaymentRefunded          BookingPaymentStatus = "REFUNDED"
	BookingPaymentPartiallyRefunded BookingPaymentStatus = "PARTIALLY_REFUNDED"
	BookingPaymentInvoiced          BookingPaymentStatus = "INVOICED"
)

type Booking struct {
	TenantBase
	Reference        string               `db:"reference"`
	CustomerName     string               `db:"customer_name"`
	CustomerPhone    string               `db:"customer_phone"`
	CustomerEmail    *string              `db:"customer_email"`
	Pickup           string               `db:"pickup"`
	Dropoff          string               `db:"dropoff"`
	ScheduledAt      time.Time            `db:"scheduled_at"`
	Price            int64                `db:"price"` // minor currency units
	Currency         string               `db:"currency"`
	Status           BookingStatus        `db:"status"`
	PaymentStatus    BookingPaymentStatus `db:"payment_status"`
	DriverID         *uuid.UUID           `db:"driver_id"`
	CustomerNotified bool                 `db:"customer_notified"`
	DriverNotified   bool                 `db:"driver_notified"`
	DriverAccepted   bool                 `db:"driver_accepted"`
	DriverAcceptedAt *time.Time           `db:"driver_accepted_at"`
	PaymentSessionID *string              `db:"payment_session_id"`
	Notes            string               `db:"notes"`

	// Version increases on every write; updates are rejected when it moved.
	Version int64 `db:"version"`
}
